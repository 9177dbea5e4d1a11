// Package jwt parses and generates the signed token envelope used by the
// BrowserID protocol: three dot-separated base64url segments holding a JSON
// header, a JSON payload and a raw signature. The envelope predates the
// finalized JOSE specifications and uses its own algorithm identifiers and key
// formats, so general-purpose JOSE libraries cannot process it; the signature
// algorithms themselves live in this package too (see keys.go).
package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/return42/browserid/errors"
)

// Token is a parsed signed token. A Token is immutable once constructed:
// tokens are only built by Parse and must never be modified afterwards.
type Token struct {
	// Algorithm is the signing algorithm identifier from the token header.
	Algorithm string
	// Payload is the decoded claims object.
	Payload map[string]any
	// Signature is the decoded signature bytes.
	Signature []byte
	// SignedData is the exact header-dot-payload byte span the signature
	// covers, taken verbatim from the serialized token. It must never be
	// recomputed from re-serialized JSON: field order and whitespace would
	// not survive the round trip and signature checks would fail.
	SignedData []byte
}

// Parse parses a signed token from its serialized form.
func Parse(token string) (*Token, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, errors.Errorf(errors.KindMalformedToken,
			"token does not have three dot-separated segments")
	}

	signedData := segments[0] + "." + segments[1]

	header, err := DecodeJSONBytes(segments[0])
	if err != nil {
		return nil, err
	}

	algorithm, ok := header["alg"].(string)
	if !ok {
		return nil, errors.Errorf(errors.KindMalformedToken, "token header has no alg field")
	}

	payload, err := DecodeJSONBytes(segments[1])
	if err != nil {
		return nil, err
	}

	signature, err := DecodeBytes(segments[2])
	if err != nil {
		return nil, err
	}

	return &Token{
		Algorithm:  algorithm,
		Payload:    payload,
		Signature:  signature,
		SignedData: []byte(signedData),
	}, nil
}

// Generate serializes and signs a token for the given payload. Verifiers never
// need this; it exists so that identity providers, test fixtures and the
// integration harness can mint certificates and assertions.
func Generate(payload map[string]any, key Key) (string, error) {
	header, err := EncodeJSONBytes(map[string]any{"alg": key.Algorithm()})
	if err != nil {
		return "", err
	}

	encodedPayload, err := EncodeJSONBytes(payload)
	if err != nil {
		return "", err
	}

	signedData := header + "." + encodedPayload

	signature, err := key.Sign([]byte(signedData))
	if err != nil {
		return "", err
	}

	return signedData + "." + EncodeBytes(signature), nil
}

// CheckSignature checks that the token was signed with the given key. The
// token's algorithm identifier must be prefixed by the key's declared family:
// a token claiming one algorithm must never be checked against key material
// for an incompatible family.
func (t *Token) CheckSignature(keyData KeyData) (bool, error) {
	family, err := keyData.Family()
	if err != nil {
		return false, err
	}

	if !strings.HasPrefix(t.Algorithm, family) {
		return false, nil
	}

	key, err := LoadKey(t.Algorithm, keyData)
	if err != nil {
		return false, err
	}

	return key.Verify(t.SignedData, t.Signature), nil
}

// DecodeBytes decodes the protocol's base64 format. Serialized tokens strip
// the padding characters off of base64url-encoded segments, so padding is
// tolerated but not required.
func DecodeBytes(value string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "incorrect base64 encoding: %s", err)
	}

	return decoded, nil
}

// EncodeBytes encodes bytes in the protocol's unpadded base64url format.
func EncodeBytes(value []byte) string {
	return base64.RawURLEncoding.EncodeToString(value)
}

// DecodeJSONBytes decodes a JSON object from a base64url-encoded segment.
func DecodeJSONBytes(value string) (map[string]any, error) {
	decoded, err := DecodeBytes(value)
	if err != nil {
		return nil, err
	}

	var object map[string]any
	if err := json.Unmarshal(decoded, &object); err != nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "segment is not a JSON object: %s", err)
	}

	return object, nil
}

// EncodeJSONBytes encodes an object as JSON in the protocol's base64 format.
func EncodeJSONBytes(object map[string]any) (string, error) {
	serialized, err := json.Marshal(object)
	if err != nil {
		return "", errors.Errorf(errors.KindMalformedToken, "failed to marshal payload: %s", err)
	}

	return EncodeBytes(serialized), nil
}
