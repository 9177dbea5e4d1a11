package browseridtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/jwt"
)

func TestKeypairIsDeterministic(t *testing.T) {
	public1, key1 := Keypair("example.com")
	public2, _ := Keypair("example.com")
	require.Equal(t, public1["y"], public2["y"])

	// The public half carries no private material.
	require.NotContains(t, public1, "x")

	signature, err := key1.Sign([]byte("hello"))
	require.NoError(t, err)

	verifier, err := jwt.LoadKey("DS128", public2)
	require.NoError(t, err)
	require.True(t, verifier.Verify([]byte("hello"), signature))
}

func TestKeypairsDifferPerHostname(t *testing.T) {
	publicA, _ := Keypair("a.example.com")
	publicB, _ := Keypair("b.example.com")
	require.NotEqual(t, publicA["y"], publicB["y"])
}

func TestMakeAssertionShape(t *testing.T) {
	bundled := MakeAssertion("alice@example.com", "https://rp.example.com")

	certificates, serializedAssertion, err := bundle.Unbundle(bundled)
	require.NoError(t, err)
	require.Len(t, certificates, 1)

	certificate, err := bundle.ParseCertificate(certificates[0])
	require.NoError(t, err)
	require.Equal(t, "login.persona.org", certificate.Issuer)
	require.Equal(t, "alice@example.com", certificate.Email)

	assertion, err := bundle.ParseAssertion(serializedAssertion)
	require.NoError(t, err)
	require.Equal(t, "https://rp.example.com", assertion.Audience)
}

func TestMakeAssertionOptions(t *testing.T) {
	bundled := MakeAssertion("alice@example.com", "https://rp.example.com",
		WithIssuer("idp.example.net"),
		WithExpires(42),
		WithIDPClaims(map[string]any{"extra": "idp"}),
		WithUserClaims(map[string]any{"extra": "user"}))

	certificates, serializedAssertion, err := bundle.Unbundle(bundled)
	require.NoError(t, err)

	certificate, err := bundle.ParseCertificate(certificates[0])
	require.NoError(t, err)
	require.Equal(t, "idp.example.net", certificate.Issuer)
	require.Equal(t, int64(42), certificate.Expires)
	require.Equal(t, "idp", certificate.Token.Payload["extra"])

	assertion, err := bundle.ParseAssertion(serializedAssertion)
	require.NoError(t, err)
	require.Equal(t, int64(42), assertion.Expires)
	require.Equal(t, "user", assertion.Token.Payload["extra"])
}

func TestMakeAssertionCorruptedSignatures(t *testing.T) {
	bundled := MakeAssertion("alice@example.com", "https://rp.example.com",
		WithAssertionSig([]byte("corrupt")))
	_, serializedAssertion, err := bundle.Unbundle(bundled)
	require.NoError(t, err)

	assertion, err := bundle.ParseAssertion(serializedAssertion)
	require.NoError(t, err)

	public, _ := Keypair("alice@example.com")
	valid, err := assertion.Token.CheckSignature(public)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestFetcherMagicHostnames(t *testing.T) {
	fetcher := &Fetcher{}

	doc, err := fetcher.FetchSupportDocument("redirect.org")
	require.NoError(t, err)
	require.Equal(t, "delegated.org", doc.Authority)

	doc, err = fetcher.FetchSupportDocument("redirect-twice.org")
	require.NoError(t, err)
	require.Equal(t, "redirect.org", doc.Authority)

	doc, err = fetcher.FetchSupportDocument("infinite.org")
	require.NoError(t, err)
	require.Equal(t, "infinite.org", doc.Authority)

	doc, err = fetcher.FetchSupportDocument("plain.example.com")
	require.NoError(t, err)
	require.NotNil(t, doc.PublicKey)

	require.Equal(t, int64(4), fetcher.Calls())
}
