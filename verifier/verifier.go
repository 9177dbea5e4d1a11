// Package verifier checks backed identity assertions, either locally against
// the issuing provider's published keys or by delegating to a remote
// verification service.
package verifier

// Result is the outcome of a successful verification.
type Result struct {
	Status   string `json:"status"`
	Audience string `json:"audience"`
	Email    string `json:"email"`
	Issuer   string `json:"issuer"`
	Expires  int64  `json:"expires"`
}

// StatusOkay is the Status of every successful Result.
const StatusOkay = "okay"

// Verifier checks a backed assertion against an audience.
type Verifier interface {
	Verify(assertion string, audience string) (*Result, error)
}
