package verifier

import (
	"encoding/json"
	"net/url"

	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/httpclient"
)

// DefaultVerifierURL is the hosted verification service.
const DefaultVerifierURL = "https://verifier.login.persona.org/verify"

// RemoteVerifier posts assertions to a verification service instead of
// checking them locally. The service sees every assertion, so this trades
// privacy for not having to track protocol changes.
type RemoteVerifier struct {
	url    string
	client *httpclient.Client
}

// RemoteOption configures a RemoteVerifier.
type RemoteOption func(*RemoteVerifier)

// WithVerifierURL posts to a verification service other than the default.
func WithVerifierURL(verifierURL string) RemoteOption {
	return func(v *RemoteVerifier) { v.url = verifierURL }
}

// WithHTTPClient installs the HTTP client used to reach the service.
func WithHTTPClient(client *httpclient.Client) RemoteOption {
	return func(v *RemoteVerifier) { v.client = client }
}

func NewRemoteVerifier(options ...RemoteOption) *RemoteVerifier {
	verifier := &RemoteVerifier{url: DefaultVerifierURL}
	for _, option := range options {
		option(verifier)
	}
	if verifier.client == nil {
		verifier.client = httpclient.New()
	}

	return verifier
}

// Verify posts the assertion and audience to the verification service and
// maps its response onto a Result. The audience is required: the service has
// no notion of a preconfigured audience set.
func (v *RemoteVerifier) Verify(assertion string, audience string) (*Result, error) {
	if audience == "" {
		return nil, errors.Errorf(errors.KindAudienceMismatch,
			"remote verification requires an expected audience")
	}

	// Cheap local pre-check so obviously misdirected assertions never leave
	// the process. Parse failures are left to the service, which is
	// authoritative on the wire format.
	if _, err := checkAudience(assertion, audience, nil); err != nil {
		if errors.IsKind(err, errors.KindAudienceMismatch) {
			return nil, err
		}
	}

	status, body, err := v.client.PostForm(v.url, url.Values{
		"assertion": []string{assertion},
		"audience":  []string{audience},
	})
	if err != nil {
		return nil, err
	}

	// The service answers 500 for assertions it cannot parse at all.
	if status == 500 {
		return nil, errors.Errorf(errors.KindMalformedToken, "malformed assertion")
	}

	var response struct {
		Status   string `json:"status"`
		Reason   string `json:"reason"`
		Audience string `json:"audience"`
		Email    string `json:"email"`
		Issuer   string `json:"issuer"`
		Expires  int64  `json:"expires"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Errorf(errors.KindConnection,
			"verifier service returned invalid response: %s", err)
	}

	if response.Status != StatusOkay {
		return nil, errors.Errorf(errors.KindInvalidSignature,
			"verifier service rejected the assertion: %s", response.Reason)
	}
	if response.Audience != audience {
		return nil, errors.Errorf(errors.KindAudienceMismatch,
			"verifier service echoed audience %q", response.Audience)
	}

	return &Result{
		Status:   response.Status,
		Audience: response.Audience,
		Email:    response.Email,
		Issuer:   response.Issuer,
		Expires:  response.Expires,
	}, nil
}
