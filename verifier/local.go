package verifier

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/jwt"
	"github.com/return42/browserid/supportdoc"
)

// Resolver supplies the two facts local verification needs from the outside
// world: the certifying key an issuer publishes, and whether that issuer is
// trusted to certify a given domain. supportdoc.Manager is the production
// implementation.
type Resolver interface {
	GetKey(issuer string) (jwt.KeyData, error)
	IsTrustedIssuer(hostname string, issuer string, trustedSecondaries []string) bool
}

// LocalVerifier checks backed assertions locally: it walks the certificate
// chain down from the issuer's published key, then checks the assertion
// signature against the certified key. No third-party service sees the
// assertion.
type LocalVerifier struct {
	resolver           Resolver
	audiences          *regexp.Regexp
	trustedSecondaries []string
	logger             *zap.Logger
}

// LocalOption configures a LocalVerifier.
type LocalOption func(*LocalVerifier)

// WithResolver installs a key and trust resolver other than the default
// supportdoc.Manager.
func WithResolver(resolver Resolver) LocalOption {
	return func(v *LocalVerifier) { v.resolver = resolver }
}

// WithAudiences configures glob patterns every assertion's audience must
// match when a call to Verify names no expected audience.
func WithAudiences(patterns ...string) LocalOption {
	return func(v *LocalVerifier) {
		matcher, err := compileAudiencePatterns(patterns)
		if err != nil {
			panic(err)
		}
		v.audiences = matcher
	}
}

// WithTrustedSecondaries overrides the default set of secondary providers
// trusted to certify any domain. Pass no arguments to trust none.
func WithTrustedSecondaries(hostnames ...string) LocalOption {
	return func(v *LocalVerifier) {
		v.trustedSecondaries = append([]string{}, hostnames...)
	}
}

// WithLocalLogger installs a logger. Verifiers are silent by default.
func WithLocalLogger(logger *zap.Logger) LocalOption {
	return func(v *LocalVerifier) { v.logger = logger }
}

func NewLocalVerifier(options ...LocalOption) *LocalVerifier {
	verifier := &LocalVerifier{logger: zap.NewNop()}
	for _, option := range options {
		option(verifier)
	}
	if verifier.resolver == nil {
		verifier.resolver = supportdoc.NewManager()
	}

	return verifier
}

// Verify checks a backed assertion for the given audience at the current
// time.
func (v *LocalVerifier) Verify(assertion string, audience string) (*Result, error) {
	return v.VerifyAt(assertion, audience, 0)
}

// VerifyAt checks a backed assertion for the given audience at a fixed time,
// given in milliseconds since the epoch. A now of zero means the current
// time.
func (v *LocalVerifier) VerifyAt(bundled string, audience string, now int64) (*Result, error) {
	if now == 0 {
		now = time.Now().UnixMilli()
	}

	// The audience check runs before anything cryptographic: an assertion
	// for the wrong site must fail without costing signature checks or
	// support document fetches.
	matchedAudience, err := checkAudience(bundled, audience, v.audiences)
	if err != nil {
		return nil, err
	}

	serializedCertificates, serializedAssertion, err := bundle.Unbundle(bundled)
	if err != nil {
		return nil, err
	}
	if len(serializedCertificates) > 1 {
		return nil, errors.Errorf(errors.KindUnsupportedCertChain,
			"certificate chains of length %d are not supported", len(serializedCertificates))
	}

	parsedAssertion, err := bundle.ParseAssertion(serializedAssertion)
	if err != nil {
		return nil, err
	}
	if parsedAssertion.Expires < now {
		return nil, errors.Errorf(errors.KindExpiredSignature,
			"assertion expired at %d", parsedAssertion.Expires)
	}

	certificates := make([]*bundle.Certificate, 0, len(serializedCertificates))
	for _, serialized := range serializedCertificates {
		certificate, err := bundle.ParseCertificate(serialized)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, certificate)
	}
	if len(certificates) == 0 {
		return nil, errors.Errorf(errors.KindMalformedToken, "bundle contains no certificates")
	}

	// Trust is decided from the last certificate's subject domain against
	// the first certificate's issuer, before any signature work.
	subject := certificates[len(certificates)-1]
	rootIssuer := certificates[0].Issuer
	if !v.resolver.IsTrustedIssuer(subject.Domain, rootIssuer, v.trustedSecondaries) {
		return nil, errors.Errorf(errors.KindInvalidSignature,
			"issuer %s is not trusted for domain %s", rootIssuer, subject.Domain)
	}

	leaf, err := v.verifyCertificateChain(certificates, now)
	if err != nil {
		return nil, err
	}

	valid, err := parsedAssertion.Token.CheckSignature(leaf.PublicKey)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, errors.Errorf(errors.KindInvalidSignature, "invalid assertion signature")
	}

	v.logger.Debug("assertion verified",
		zap.String("email", leaf.Email),
		zap.String("audience", matchedAudience),
		zap.String("issuer", leaf.Issuer))

	return &Result{
		Status:   StatusOkay,
		Audience: matchedAudience,
		Email:    leaf.Email,
		Issuer:   leaf.Issuer,
		Expires:  parsedAssertion.Expires,
	}, nil
}

// VerifyCertificateChain checks a certificate chain at the current time and
// returns the leaf certificate. The chain runs root first: the root must be
// signed by its issuer's published key and each following certificate by the
// key certified before it.
func (v *LocalVerifier) VerifyCertificateChain(certificates []*bundle.Certificate) (*bundle.Certificate, error) {
	return v.verifyCertificateChain(certificates, time.Now().UnixMilli())
}

func (v *LocalVerifier) verifyCertificateChain(certificates []*bundle.Certificate, now int64) (*bundle.Certificate, error) {
	if len(certificates) == 0 {
		return nil, errors.Errorf(errors.KindMalformedToken, "empty certificate chain")
	}

	root := certificates[0]
	signingKey, err := v.resolver.GetKey(root.Issuer)
	if err != nil {
		return nil, err
	}

	current := root
	for {
		if current.Expires < now {
			return nil, errors.Errorf(errors.KindExpiredSignature,
				"certificate expired at %d", current.Expires)
		}
		valid, err := current.Token.CheckSignature(signingKey)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, errors.Errorf(errors.KindInvalidSignature, "invalid certificate signature")
		}

		certificates = certificates[1:]
		if len(certificates) == 0 {
			return current, nil
		}
		signingKey = current.PublicKey
		current = certificates[0]
	}
}
