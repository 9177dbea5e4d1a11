package bundle

import (
	"regexp"

	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/jwt"
)

// emailRegexp matches the identities a certificate may certify: a local part
// of word characters and common punctuation, then a domain which may carry a
// port. Group 2 captures the domain.
var emailRegexp = regexp.MustCompile(
	"^([\\w!#$%&'*+/=?^`{|}~.\\-]+)@([\\w.\\-]+(:[0-9]{1,5})?)$")

// Certificate is a parsed identity certificate: an issuer's statement that a
// public key speaks for an email address until some expiry time.
type Certificate struct {
	// Token is the parsed envelope, kept for signature checking.
	Token *jwt.Token
	// Issuer is the domain that issued the certificate.
	Issuer string
	// Expires is the expiry time in milliseconds since the epoch.
	Expires int64
	// Email is the certified identity.
	Email string
	// Domain is the domain part of Email.
	Domain string
	// PublicKey is the certified key material.
	PublicKey jwt.KeyData
}

// Assertion is a parsed identity assertion: the user's statement, signed with
// a certified key, that they are presenting their identity to an audience.
type Assertion struct {
	// Token is the parsed envelope, kept for signature checking.
	Token *jwt.Token
	// Audience is the relying party the assertion is for.
	Audience string
	// Expires is the expiry time in milliseconds since the epoch.
	Expires int64
}

// ParseCertificate parses a serialized identity certificate. Both the current
// claim shape (sub, pubkey) and the legacy shape (principal.email, public-key)
// are accepted and normalized.
func ParseCertificate(serialized string) (*Certificate, error) {
	token, err := jwt.Parse(serialized)
	if err != nil {
		return nil, err
	}

	issuer, err := stringClaim(token.Payload, "iss")
	if err != nil {
		return nil, err
	}

	expires, err := intClaim(token.Payload, "exp")
	if err != nil {
		return nil, err
	}

	email, err := certifiedEmail(token.Payload)
	if err != nil {
		return nil, err
	}

	match := emailRegexp.FindStringSubmatch(email)
	if match == nil {
		return nil, errors.Errorf(errors.KindMalformedToken, "invalid email in certificate: %q", email)
	}

	publicKey, err := certifiedKey(token.Payload)
	if err != nil {
		return nil, err
	}

	return &Certificate{
		Token:     token,
		Issuer:    issuer,
		Expires:   expires,
		Email:     email,
		Domain:    match[2],
		PublicKey: publicKey,
	}, nil
}

// ParseAssertion parses a serialized identity assertion.
func ParseAssertion(serialized string) (*Assertion, error) {
	token, err := jwt.Parse(serialized)
	if err != nil {
		return nil, err
	}

	audience, err := stringClaim(token.Payload, "aud")
	if err != nil {
		return nil, err
	}

	expires, err := intClaim(token.Payload, "exp")
	if err != nil {
		return nil, err
	}

	return &Assertion{Token: token, Audience: audience, Expires: expires}, nil
}

func certifiedEmail(payload map[string]any) (string, error) {
	if email, ok := payload["sub"].(string); ok {
		return email, nil
	}

	if principal, ok := payload["principal"].(map[string]any); ok {
		if email, ok := principal["email"].(string); ok {
			return email, nil
		}
	}

	return "", errors.Errorf(errors.KindMalformedToken, "certificate identifies no email")
}

func certifiedKey(payload map[string]any) (jwt.KeyData, error) {
	for _, field := range []string{"pubkey", "public-key"} {
		if key, ok := payload[field].(map[string]any); ok {
			return jwt.KeyData(key), nil
		}
	}

	return nil, errors.Errorf(errors.KindMalformedToken, "certificate carries no public key")
}

func stringClaim(payload map[string]any, name string) (string, error) {
	value, ok := payload[name].(string)
	if !ok {
		return "", errors.Errorf(errors.KindMalformedToken, "token has no %s claim", name)
	}

	return value, nil
}

func intClaim(payload map[string]any, name string) (int64, error) {
	value, ok := payload[name].(float64)
	if !ok {
		return 0, errors.Errorf(errors.KindMalformedToken, "token has no %s claim", name)
	}

	return int64(value), nil
}
