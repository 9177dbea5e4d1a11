package browserid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/return42/browserid/errors"
)

func TestVerifyRequiresAudience(t *testing.T) {
	// The default verifier is remote and refuses to post an assertion
	// without an expected audience, so this fails before any network
	// traffic.
	_, err := Verify("some-assertion", "")
	require.Error(t, err)
	require.Equal(t, errors.KindAudienceMismatch, errors.KindOf(err))
}
