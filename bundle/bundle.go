// Package bundle packs and unpacks the wire form of a backed identity
// assertion: an identity certificate chain together with the assertion signed
// by the certified key.
package bundle

import (
	"encoding/json"
	"strings"

	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/jwt"
)

// Bundle packs certificates and an assertion into the current wire format,
// joining the serialized tokens with tilde separators.
func Bundle(certificates []string, assertion string) string {
	return strings.Join(append(append([]string{}, certificates...), assertion), "~")
}

// BundleJSON packs certificates and an assertion into the obsolete wire
// format: a base64url-encoded JSON object. New code must not emit this form,
// it exists so that fixtures can exercise the compatibility path.
func BundleJSON(certificates []string, assertion string) (string, error) {
	serialized, err := json.Marshal(map[string]any{
		"certificates": certificates,
		"assertion":    assertion,
	})
	if err != nil {
		return "", errors.Errorf(errors.KindMalformedToken, "failed to marshal bundle: %s", err)
	}

	return jwt.EncodeBytes(serialized), nil
}

// Unbundle unpacks a backed assertion into its certificate chain and
// assertion. Both the current tilde-separated format and the obsolete
// base64url JSON format are accepted.
func Unbundle(bundled string) (certificates []string, assertion string, err error) {
	if strings.Contains(bundled, "~") {
		split := strings.Split(bundled, "~")
		return split[:len(split)-1], split[len(split)-1], nil
	}

	decoded, err := jwt.DecodeBytes(bundled)
	if err != nil {
		return nil, "", err
	}

	var data struct {
		Certificates []string `json:"certificates"`
		Assertion    string   `json:"assertion"`
	}
	if err := json.Unmarshal(decoded, &data); err != nil {
		return nil, "", errors.Errorf(errors.KindMalformedToken, "bundle is not a JSON object: %s", err)
	}
	if len(data.Certificates) == 0 || data.Assertion == "" {
		return nil, "", errors.Errorf(errors.KindMalformedToken, "bundle is missing certificates or assertion")
	}

	return data.Certificates, data.Assertion, nil
}

// Info holds the unverified claims of a backed assertion.
type Info struct {
	// Email is the certified identity, from the final certificate.
	Email string
	// Audience is the relying party the assertion was minted for.
	Audience string
}

// AssertionInfo extracts the email and audience claimed by a backed
// assertion without verifying anything. Applications use it to route an
// assertion before paying for verification; its output must never be trusted.
func AssertionInfo(bundled string) (*Info, error) {
	certificates, serializedAssertion, err := Unbundle(bundled)
	if err != nil {
		return nil, err
	}
	if len(certificates) == 0 {
		return nil, errors.Errorf(errors.KindMalformedToken, "bundle contains no certificates")
	}

	certificate, err := ParseCertificate(certificates[len(certificates)-1])
	if err != nil {
		return nil, err
	}

	assertion, err := ParseAssertion(serializedAssertion)
	if err != nil {
		return nil, err
	}

	return &Info{Email: certificate.Email, Audience: assertion.Audience}, nil
}
