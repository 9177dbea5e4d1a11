package jwt

import (
	"math"
	"math/big"
	"strings"

	"github.com/return42/browserid/errors"
)

// Key is a loaded signing key. Sign fails when the key carries no private
// component; Verify never fails, a signature that cannot be checked is simply
// not valid.
type Key interface {
	// Algorithm returns the algorithm identifier the key was loaded for.
	Algorithm() string
	// Sign signs the given data.
	Sign(data []byte) ([]byte, error)
	// Verify reports whether signature is a valid signature over signedData.
	Verify(signedData []byte, signature []byte) bool
}

// KeyData is raw key material as published in certificates and support
// documents: a JSON object whose fields depend on the algorithm family.
type KeyData map[string]any

// Family returns the declared algorithm family of the key material, "RS" or
// "DS". Current documents carry it in a "kty" field, older ones in an
// "algorithm" field.
func (d KeyData) Family() (string, error) {
	for _, field := range []string{"kty", "algorithm"} {
		if family, ok := d[field].(string); ok {
			return family, nil
		}
	}

	return "", errors.Errorf(errors.KindMalformedToken, "key data does not declare an algorithm family")
}

// keyConstructors is the closed set of supported algorithms. Identifiers
// outside this table are rejected; the protocol has no registry for extension
// algorithms and loading keys for arbitrary identifiers would be an oracle.
var keyConstructors = map[string]func(KeyData) (Key, error){
	"RS64":  func(d KeyData) (Key, error) { return newRSKey("RS64", 128, d) },
	"RS128": func(d KeyData) (Key, error) { return newRSKey("RS128", 160, d) },
	"RS256": func(d KeyData) (Key, error) { return newRSKey("RS256", 256, d) },
	"DS128": func(d KeyData) (Key, error) { return newDSKey("DS128", d) },
	"DS256": func(d KeyData) (Key, error) { return newDSKey("DS256", d) },
}

func isAlphanumeric(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return len(s) > 0
}

// LoadKey loads key material for the given algorithm identifier.
func LoadKey(algorithm string, keyData KeyData) (Key, error) {
	constructor, ok := keyConstructors[algorithm]
	if !ok || !isAlphanumeric(algorithm) {
		return nil, errors.Errorf(errors.KindMalformedToken, "unknown signing algorithm: %s", algorithm)
	}

	return constructor(keyData)
}

// bigIntField reads a big integer field out of key data. Published keys carry
// their parameters as strings, decimal for RSA and hex for DSA, sometimes
// wrapped over several lines; JSON numbers are tolerated when they fit
// exactly in a float64.
func bigIntField(keyData KeyData, field string, base int) (*big.Int, error) {
	raw, ok := keyData[field]
	if !ok {
		return nil, errors.Errorf(errors.KindMalformedToken, "key data has no %s field", field)
	}

	stripWhitespace := func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}

	switch value := raw.(type) {
	case string:
		parsed, ok := new(big.Int).SetString(strings.Map(stripWhitespace, value), base)
		if !ok {
			return nil, errors.Errorf(errors.KindMalformedToken, "key field %s is not a base %d integer", field, base)
		}
		return parsed, nil
	case float64:
		if value != math.Trunc(value) || math.Abs(value) >= 1<<53 {
			return nil, errors.Errorf(errors.KindMalformedToken, "key field %s is not an integer", field)
		}
		return big.NewInt(int64(value)), nil
	default:
		return nil, errors.Errorf(errors.KindMalformedToken, "key field %s has unexpected type %T", field, raw)
	}
}
