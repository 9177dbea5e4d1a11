// Package browserid verifies BrowserID identity assertions. Most callers
// want either the package-level Verify, which posts assertions to the hosted
// verification service, or a verifier.LocalVerifier, which checks assertions
// against the issuing provider's published keys without showing them to
// anyone.
package browserid

import (
	"sync"

	"github.com/return42/browserid/verifier"
)

// Version of the module.
const Version = "1.0.0"

var (
	defaultVerifier     verifier.Verifier
	defaultVerifierOnce sync.Once
)

// Verify checks a backed assertion for the given audience using the hosted
// verification service.
func Verify(assertion string, audience string) (*verifier.Result, error) {
	defaultVerifierOnce.Do(func() {
		defaultVerifier = verifier.NewRemoteVerifier()
	})

	return defaultVerifier.Verify(assertion, audience)
}
