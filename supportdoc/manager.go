package supportdoc

import (
	"time"

	gocache "github.com/TwiN/gocache/v2"
	"go.uber.org/zap"

	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/jwt"
)

const (
	// DefaultCacheTTL is how long a fetched support document, or a fetch
	// failure, is reused before the provider is asked again.
	DefaultCacheTTL = time.Hour
	// DefaultCacheSize bounds the number of cached hostnames.
	DefaultCacheSize = 1000
)

// fetchResult is a cache entry. Failures are cached alongside successes so
// that a domain publishing no support document does not get hammered on every
// failed login attempt.
type fetchResult struct {
	doc *Document
	err error
}

// Manager resolves certifying keys and issuer trust, caching support
// documents between lookups. A Manager is safe for concurrent use.
type Manager struct {
	fetcher        Fetcher
	cache          *gocache.Cache
	ttl            time.Duration
	maxDelegations int
	logger         *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFetcher installs a support document fetcher other than the default
// HTTPS one.
func WithFetcher(fetcher Fetcher) ManagerOption {
	return func(m *Manager) { m.fetcher = fetcher }
}

// WithCacheTTL sets how long fetch results are cached.
func WithCacheTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithCacheSize bounds the number of cached hostnames.
func WithCacheSize(size int) ManagerOption {
	return func(m *Manager) {
		m.cache = gocache.NewCache().WithMaxSize(size).WithEvictionPolicy(gocache.FirstInFirstOut)
	}
}

// WithMaxDelegations bounds how many authority delegations are followed.
func WithMaxDelegations(max int) ManagerOption {
	return func(m *Manager) { m.maxDelegations = max }
}

// WithLogger installs a logger. Managers are silent by default.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(options ...ManagerOption) *Manager {
	manager := &Manager{
		fetcher:        NewHTTPFetcher(nil),
		cache:          gocache.NewCache().WithMaxSize(DefaultCacheSize).WithEvictionPolicy(gocache.FirstInFirstOut),
		ttl:            DefaultCacheTTL,
		maxDelegations: DefaultMaxDelegations,
		logger:         zap.NewNop(),
	}
	for _, option := range options {
		option(manager)
	}

	return manager
}

// document returns the support document for hostname, consulting the cache
// first.
func (m *Manager) document(hostname string) (*Document, error) {
	if cached, ok := m.cache.Get(hostname); ok {
		result := cached.(fetchResult)
		return result.doc, result.err
	}

	doc, err := m.fetcher.FetchSupportDocument(hostname)
	if err != nil {
		m.logger.Info("support document fetch failed",
			zap.String("hostname", hostname), zap.Error(err))
	}
	m.cache.SetWithTTL(hostname, fetchResult{doc: doc, err: err}, m.ttl)

	return doc, err
}

// GetKey returns the certifying public key published by hostname, following
// authority delegations.
func (m *Manager) GetKey(hostname string) (jwt.KeyData, error) {
	doc, err := m.resolve(hostname)
	if err != nil {
		return nil, err
	}
	if doc.PublicKey == nil {
		return nil, errors.Errorf(errors.KindInvalidSignature,
			"support document for %s contains no public key", hostname)
	}

	return doc.PublicKey, nil
}

// IsTrustedIssuer reports whether issuer is trusted to certify identities for
// hostname: the issuer is the hostname itself, one of the trusted secondary
// providers, or a provider that hostname delegates to. trustedSecondaries of
// nil means DefaultTrustedSecondaries; pass an empty slice to trust none.
func (m *Manager) IsTrustedIssuer(hostname string, issuer string, trustedSecondaries []string) bool {
	if issuer == hostname {
		return true
	}

	if trustedSecondaries == nil {
		trustedSecondaries = DefaultTrustedSecondaries
	}
	for _, secondary := range trustedSecondaries {
		if issuer == secondary {
			return true
		}
	}

	authority, err := m.resolveAuthority(hostname)
	if err != nil {
		return false
	}

	return authority == issuer
}

// resolve returns the support document that governs hostname, following
// authority delegations up to the configured bound.
func (m *Manager) resolve(hostname string) (*Document, error) {
	doc, _, err := m.walk(hostname)
	return doc, err
}

// resolveAuthority returns the hostname whose support document governs
// hostname after following delegations.
func (m *Manager) resolveAuthority(hostname string) (string, error) {
	_, authority, err := m.walk(hostname)
	return authority, err
}

func (m *Manager) walk(hostname string) (*Document, string, error) {
	current := hostname
	for hop := 0; ; hop++ {
		doc, err := m.document(current)
		if err != nil {
			return nil, "", err
		}
		if doc.Authority == "" {
			return doc, current, nil
		}
		if hop >= m.maxDelegations {
			return nil, "", errors.Errorf(errors.KindInvalidSignature,
				"support document for %s delegates too many times", hostname)
		}
		m.logger.Debug("following authority delegation",
			zap.String("from", current), zap.String("to", doc.Authority))
		current = doc.Authority
	}
}
