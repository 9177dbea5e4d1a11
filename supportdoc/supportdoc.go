// Package supportdoc fetches and caches the support documents that identity
// providers publish to declare their public keys, and decides which issuer is
// trusted to certify a given identity.
package supportdoc

import (
	"encoding/json"
	"fmt"

	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/httpclient"
	"github.com/return42/browserid/jwt"
)

// WellKnownPath is where an identity provider publishes its support document.
const WellKnownPath = "/.well-known/browserid"

// DefaultTrustedSecondaries are the fallback identity providers trusted to
// certify identities for domains that run no provider of their own.
var DefaultTrustedSecondaries = []string{
	"browserid.org",
	"diresworb.org",
	"dev.diresworb.org",
	"login.anosrep.org",
	"login.persona.org",
}

// DefaultMaxDelegations bounds how many authority delegations are followed
// before a domain is considered to have no usable support document.
const DefaultMaxDelegations = 6

// Document is a published support document.
type Document struct {
	// PublicKey is the provider's certifying key.
	PublicKey jwt.KeyData `json:"public-key"`
	// Authority, when set, delegates this domain's identities to another
	// provider.
	Authority string `json:"authority,omitempty"`
}

// Fetcher retrieves the support document for a hostname. Implementations
// other than HTTPFetcher exist for tests.
type Fetcher interface {
	FetchSupportDocument(hostname string) (*Document, error)
}

// HTTPFetcher fetches support documents over HTTPS.
type HTTPFetcher struct {
	client *httpclient.Client
}

func NewHTTPFetcher(client *httpclient.Client) *HTTPFetcher {
	if client == nil {
		client = httpclient.New()
	}

	return &HTTPFetcher{client: client}
}

// FetchSupportDocument fetches the support document published by hostname.
// Providers predating the well-known document published a bare key at /pk;
// that endpoint is tried as a fallback.
func (f *HTTPFetcher) FetchSupportDocument(hostname string) (*Document, error) {
	status, body, err := f.client.Get(fmt.Sprintf("https://%s%s", hostname, WellKnownPath))
	if err != nil {
		return nil, err
	}

	if status == 200 {
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, errors.Errorf(errors.KindInvalidSignature,
				"%s has a malformed support document: %s", hostname, err)
		}
		return &doc, nil
	}

	status, body, err = f.client.Get(fmt.Sprintf("https://%s/pk", hostname))
	if err != nil {
		return nil, err
	}
	if status == 200 {
		var key jwt.KeyData
		if err := json.Unmarshal(body, &key); err != nil {
			return nil, errors.Errorf(errors.KindInvalidSignature,
				"%s publishes a malformed key: %s", hostname, err)
		}
		return &Document{PublicKey: key}, nil
	}

	return nil, errors.Errorf(errors.KindInvalidSignature,
		"domain %s does not declare support for identity assertions", hostname)
}
