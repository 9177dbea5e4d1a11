// Package test spins up a toy identity provider over real HTTP so that the
// full verification flow, support document fetch included, can be exercised
// end to end.
package test

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/return42/browserid/browseridtest"
	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/httpclient"
	"github.com/return42/browserid/jwt"
	"github.com/return42/browserid/supportdoc"
)

// IdentityProvider is a BrowserID identity provider running on a local TLS
// listener. It publishes its support document at the well-known path and
// issues certificates for any email under its domain.
type IdentityProvider struct {
	server *httptest.Server

	public  jwt.KeyData
	private jwt.Key
}

func NewIdentityProvider(t *testing.T) *IdentityProvider {
	idp := &IdentityProvider{}
	idp.public, idp.private = browseridtest.Keypair("harness-idp")

	mux := http.NewServeMux()
	mux.HandleFunc(supportdoc.WellKnownPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(supportdoc.Document{PublicKey: idp.public}); err != nil {
			t.Errorf("failed to serve support document: %s", err)
		}
	})

	idp.server = httptest.NewTLSServer(mux)
	t.Cleanup(idp.server.Close)

	return idp
}

// Domain returns the host:port the provider answers on. Certified emails use
// it as their domain.
func (idp *IdentityProvider) Domain() string {
	parsed, err := url.Parse(idp.server.URL)
	if err != nil {
		panic(err)
	}

	return parsed.Host
}

// Client returns an HTTP client that trusts the provider's self-signed
// certificate.
// TODO(return42): plumb the test CA through instead of disabling verification.
func (idp *IdentityProvider) Client() *httpclient.Client {
	return httpclient.NewWithClient(&http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}})
}

// IssueCertificate certifies that the given public key speaks for email for
// the next minute.
func (idp *IdentityProvider) IssueCertificate(t *testing.T, email string, publicKey jwt.KeyData) string {
	certificate, err := jwt.Generate(map[string]any{
		"iss":        idp.Domain(),
		"exp":        time.Now().Add(time.Minute).UnixMilli(),
		"principal":  map[string]any{"email": email},
		"public-key": map[string]any(publicKey),
	}, idp.private)
	if err != nil {
		t.Fatalf("failed to issue certificate: %s", err)
	}

	return certificate
}

// SignAssertion makes a backed assertion: a fresh user key certified by the
// provider, plus an assertion for the audience signed with that key.
func (idp *IdentityProvider) SignAssertion(t *testing.T, email string, audience string) string {
	userPublic, userPrivate := browseridtest.Keypair(email)
	certificate := idp.IssueCertificate(t, email, userPublic)

	assertion, err := jwt.Generate(map[string]any{
		"aud": audience,
		"exp": time.Now().Add(time.Minute).UnixMilli(),
	}, userPrivate)
	if err != nil {
		t.Fatalf("failed to sign assertion: %s", err)
	}

	return bundle.Bundle([]string{certificate}, assertion)
}
