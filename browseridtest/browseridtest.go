// Package browseridtest generates assertions and support documents from
// deterministic dummy keys, so that verification code can be exercised
// end to end without any real identity provider.
package browseridtest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/jwt"
)

// Domain parameters for the dummy DSA keys, from the first FIPS 186-3 test
// vectors for 1024/160 SHA-256 under category A.2.3.
const (
	dummyP = "ff600483db6abfc5b45eab78594b3533d550d9f1bf2a992a7a8daa6dc34f8045ad4e6e0c429d334eeeaaefd7e23d4810be00e4cc1492cba325ba81ff2d5a5b305a8d17eb3bf4a06a349d392e00d329744a5179380344e82a18c47933438f891e22aeef812d69c8f75e326cb70ea000c3f776dfdbd604638c2ef717fc26d02e17"
	dummyQ = "e21e04f911d1ed7991008ecaab3bf775984309c3"
	dummyG = "c52a4a0ff3b7e61fdf1867ce84138369a6154f4afa92966e3c827e25cfa6cf508b90e5de419e1337e07a2e9e2a3cd5dea704d175f8ebf6af397d69e110b96afb17c7a03259329e4829b0d03bbc7896b15b4ade53e130858cc34d96269aa89041f409136c7242a38895c9d5bccad4f389af1d7a4bd1398bd072dffa896233397a"
)

// Keypair generates a dummy DS128 keypair for the given hostname. The private
// value is derived from a hash of the hostname, so repeated calls for the
// same hostname produce the same key. Returns the public key data and the
// loaded private key.
func Keypair(hostname string) (jwt.KeyData, jwt.Key) {
	digest := sha1.Sum([]byte(hostname))
	x := new(big.Int).SetBytes(digest[:])

	p, _ := new(big.Int).SetString(dummyP, 16)
	g, _ := new(big.Int).SetString(dummyG, 16)
	y := new(big.Int).Exp(g, x, p)

	data := jwt.KeyData{
		"algorithm": "DS",
		"p":         dummyP,
		"q":         dummyQ,
		"g":         dummyG,
		"y":         hex.EncodeToString(y.Bytes()),
		"x":         hex.EncodeToString(x.Bytes()),
	}

	key, err := jwt.LoadKey("DS128", data)
	if err != nil {
		panic(fmt.Sprintf("failed to load dummy keypair for %s: %s", hostname, err))
	}

	public := jwt.KeyData{}
	for field, value := range data {
		if field != "x" {
			public[field] = value
		}
	}

	return public, key
}

// AssertionOption adjusts how MakeAssertion builds its assertion, mostly to
// produce deliberately broken ones.
type AssertionOption func(*assertionParams)

type assertionParams struct {
	issuer         string
	expires        int64
	assertionSig   []byte
	certificateSig []byte
	oldStyle       bool
	modernFormat   bool
	idpClaims      map[string]any
	userClaims     map[string]any
	emailKey       jwt.Key
	emailPub       jwt.KeyData
	issuerKey      jwt.Key
}

// WithIssuer names an issuer other than login.persona.org.
func WithIssuer(issuer string) AssertionOption {
	return func(p *assertionParams) { p.issuer = issuer }
}

// WithExpires sets the expiry of both certificate and assertion, in
// milliseconds since the epoch.
func WithExpires(expires int64) AssertionOption {
	return func(p *assertionParams) { p.expires = expires }
}

// WithAssertionSig replaces the assertion signature with the given bytes.
func WithAssertionSig(sig []byte) AssertionOption {
	return func(p *assertionParams) { p.assertionSig = sig }
}

// WithCertificateSig replaces the certificate signature with the given bytes.
func WithCertificateSig(sig []byte) AssertionOption {
	return func(p *assertionParams) { p.certificateSig = sig }
}

// OldStyle bundles in the obsolete base64url JSON wire format.
func OldStyle() AssertionOption {
	return func(p *assertionParams) { p.oldStyle = true }
}

// ModernFormat uses the current claim shape: sub and pubkey claims, and key
// data declaring its family in a kty field.
func ModernFormat() AssertionOption {
	return func(p *assertionParams) { p.modernFormat = true }
}

// WithIDPClaims merges extra claims into the certificate payload.
func WithIDPClaims(claims map[string]any) AssertionOption {
	return func(p *assertionParams) { p.idpClaims = claims }
}

// WithUserClaims merges extra claims into the assertion payload.
func WithUserClaims(claims map[string]any) AssertionOption {
	return func(p *assertionParams) { p.userClaims = claims }
}

// WithEmailKeypair certifies the given key instead of the email's
// deterministic dummy key.
func WithEmailKeypair(public jwt.KeyData, private jwt.Key) AssertionOption {
	return func(p *assertionParams) {
		p.emailPub = public
		p.emailKey = private
	}
}

// WithIssuerKey signs the certificate with the given key instead of the
// issuer's deterministic dummy key.
func WithIssuerKey(private jwt.Key) AssertionOption {
	return func(p *assertionParams) { p.issuerKey = private }
}

// MakeAssertion generates a backed assertion for the given email and
// audience, certified by login.persona.org unless an option says otherwise.
func MakeAssertion(email string, audience string, options ...AssertionOption) string {
	params := assertionParams{
		issuer:  "login.persona.org",
		expires: time.Now().Add(time.Minute).UnixMilli(),
	}
	for _, option := range options {
		option(&params)
	}

	if params.emailKey == nil {
		params.emailPub, params.emailKey = Keypair(email)
	}
	if params.issuerKey == nil {
		_, params.issuerKey = Keypair(params.issuer)
	}

	assertionClaims := map[string]any{
		"exp": params.expires,
		"aud": audience,
	}
	for claim, value := range params.userClaims {
		assertionClaims[claim] = value
	}
	assertion := mustGenerate(assertionClaims, params.emailKey)
	if params.assertionSig != nil {
		assertion = replaceSignature(assertion, params.assertionSig)
	}

	emailPub := params.emailPub
	certificateClaims := map[string]any{
		"iss": params.issuer,
		"exp": params.expires,
	}
	if params.modernFormat {
		if _, ok := emailPub["kty"]; !ok {
			modernPub := jwt.KeyData{}
			for field, value := range emailPub {
				if field != "algorithm" {
					modernPub[field] = value
				}
			}
			modernPub["kty"] = "DS"
			emailPub = modernPub
		}
		certificateClaims["sub"] = email
		certificateClaims["pubkey"] = map[string]any(emailPub)
	} else {
		certificateClaims["principal"] = map[string]any{"email": email}
		certificateClaims["public-key"] = map[string]any(emailPub)
	}
	for claim, value := range params.idpClaims {
		certificateClaims[claim] = value
	}
	certificate := mustGenerate(certificateClaims, params.issuerKey)
	if params.certificateSig != nil {
		certificate = replaceSignature(certificate, params.certificateSig)
	}

	if params.oldStyle {
		bundled, err := bundle.BundleJSON([]string{certificate}, assertion)
		if err != nil {
			panic(fmt.Sprintf("failed to bundle assertion: %s", err))
		}
		return bundled
	}

	return bundle.Bundle([]string{certificate}, assertion)
}

func mustGenerate(payload map[string]any, key jwt.Key) string {
	token, err := jwt.Generate(payload, key)
	if err != nil {
		panic(fmt.Sprintf("failed to generate token: %s", err))
	}

	return token
}

func replaceSignature(token string, signature []byte) string {
	dot := len(token) - 1
	for token[dot] != '.' {
		dot--
	}

	return token[:dot+1] + jwt.EncodeBytes(signature)
}
