package jwt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/return42/browserid/errors"
)

func testDSKeypair(t *testing.T) (KeyData, Key) {
	t.Helper()

	data := ds128KeyData(t)
	private, err := LoadKey("DS128", data)
	require.NoError(t, err)

	public := KeyData{}
	for field, value := range data {
		if field != "x" {
			public[field] = value
		}
	}

	return public, private
}

func TestParseRoundTrip(t *testing.T) {
	public, private := testDSKeypair(t)

	serialized, err := Generate(map[string]any{"aud": "https://example.com", "exp": float64(42)}, private)
	require.NoError(t, err)

	token, err := Parse(serialized)
	require.NoError(t, err)
	require.Equal(t, "DS128", token.Algorithm)
	require.Equal(t, "https://example.com", token.Payload["aud"])

	valid, err := token.CheckSignature(public)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for name, serialized := range map[string]string{
		"empty":             "",
		"one segment":       "abcd",
		"two segments":      "abcd.efgh",
		"four segments":     "abcd.efgh.ijkl.mnop",
		"junk base64":       "a!b.c!d.e!f",
		"non-object header": EncodeBytes([]byte(`"hi"`)) + "." + EncodeBytes([]byte(`{}`)) + "." + EncodeBytes([]byte("sig")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(serialized)
			require.Error(t, err)
			require.Equal(t, errors.KindMalformedToken, errors.KindOf(err))
		})
	}
}

func TestParseRejectsTokenWithNoAlgorithm(t *testing.T) {
	header, err := EncodeJSONBytes(map[string]any{})
	require.NoError(t, err)
	payload, err := EncodeJSONBytes(map[string]any{})
	require.NoError(t, err)

	_, err = Parse(header + "." + payload + "." + EncodeBytes([]byte("signature")))
	require.Error(t, err)
	require.Equal(t, errors.KindMalformedToken, errors.KindOf(err))
}

func TestCheckSignatureRejectsMismatchedFamily(t *testing.T) {
	public, private := testDSKeypair(t)

	serialized, err := Generate(map[string]any{}, private)
	require.NoError(t, err)
	token, err := Parse(serialized)
	require.NoError(t, err)

	// The token says DS128 but the key material claims the RS family.
	// The check must fail without an error, not attempt to load RS key
	// fields out of DSA data.
	public["algorithm"] = "RS"
	valid, err := token.CheckSignature(public)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestSignedDataIsLiteral(t *testing.T) {
	_, private := testDSKeypair(t)

	serialized, err := Generate(map[string]any{"b": "x", "a": "y"}, private)
	require.NoError(t, err)

	token, err := Parse(serialized)
	require.NoError(t, err)

	dot := strings.LastIndex(serialized, ".")
	require.Equal(t, serialized[:dot], string(token.SignedData))
}

func TestDecodeBytesToleratesPadding(t *testing.T) {
	decoded, err := DecodeBytes("aGVsbG8=")
	require.NoError(t, err)
	require.Equal(t, "hello", string(decoded))

	decoded, err = DecodeBytes("aGVsbG8")
	require.NoError(t, err)
	require.Equal(t, "hello", string(decoded))
}
