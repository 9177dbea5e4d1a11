package test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/return42/browserid/browseridtest"
	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/jwt"
	"github.com/return42/browserid/supportdoc"
	"github.com/return42/browserid/verifier"
)

func newVerifier(t *testing.T, idp *IdentityProvider) *verifier.LocalVerifier {
	manager := supportdoc.NewManager(
		supportdoc.WithFetcher(supportdoc.NewHTTPFetcher(idp.Client())))

	return verifier.NewLocalVerifier(verifier.WithResolver(manager))
}

func TestVerifyAgainstLiveProvider(t *testing.T) {
	idp := NewIdentityProvider(t)
	email := "alice@" + idp.Domain()

	assertion := idp.SignAssertion(t, email, "https://rp.example.com")

	result, err := newVerifier(t, idp).Verify(assertion, "https://rp.example.com")
	require.NoError(t, err)
	require.Equal(t, verifier.StatusOkay, result.Status)
	require.Equal(t, email, result.Email)
	require.Equal(t, "https://rp.example.com", result.Audience)
	require.Equal(t, idp.Domain(), result.Issuer)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	idp := NewIdentityProvider(t)
	email := "alice@" + idp.Domain()

	assertion := idp.SignAssertion(t, email, "https://rp.example.com")

	_, err := newVerifier(t, idp).Verify(assertion, "https://evil.example.com")
	require.Error(t, err)
	require.Equal(t, errors.KindAudienceMismatch, errors.KindOf(err))
}

func TestVerifyRejectsForeignCertificate(t *testing.T) {
	// Well-formed certificate for an email outside of the issuer's domain.
	// With no secondary trusted, this must fail.
	assertion := browseridtest.MakeAssertion("alice@elsewhere.example.com", "https://rp.example.com")

	v := verifier.NewLocalVerifier(
		verifier.WithResolver(supportdoc.NewManager(
			supportdoc.WithFetcher(&browseridtest.Fetcher{}))),
		verifier.WithTrustedSecondaries())

	_, err := v.Verify(assertion, "https://rp.example.com")
	require.Error(t, err)
	require.True(t, errors.IsTrustError(err))
}

func TestVerifyRejectsExpiredAssertion(t *testing.T) {
	idp := NewIdentityProvider(t)
	email := "alice@" + idp.Domain()

	userPublic, userPrivate := browseridtest.Keypair(email)
	certificate := idp.IssueCertificate(t, email, userPublic)

	assertion, err := jwt.Generate(map[string]any{
		"aud": "https://rp.example.com",
		"exp": time.Now().Add(-time.Minute).UnixMilli(),
	}, userPrivate)
	require.NoError(t, err)

	bundled := bundle.Bundle([]string{certificate}, assertion)

	_, err = newVerifier(t, idp).Verify(bundled, "https://rp.example.com")
	require.Error(t, err)
	require.Equal(t, errors.KindExpiredSignature, errors.KindOf(err))
}
