package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorf(t *testing.T) {
	err := Errorf(KindExpiredSignature, "assertion expired at %d", 1234)
	require.Equal(t, "expired signature: assertion expired at 1234", err.Error())
	require.Equal(t, KindExpiredSignature, err.Kind())
	require.NotEmpty(t, err.Stack())
}

func TestKindOf(t *testing.T) {
	err := Errorf(KindAudienceMismatch, "nope")
	require.Equal(t, KindAudienceMismatch, KindOf(err))
	require.True(t, IsKind(err, KindAudienceMismatch))
	require.False(t, IsKind(err, KindConnection))

	// Kind discrimination survives wrapping.
	wrapped := fmt.Errorf("verification failed: %w", err)
	require.Equal(t, KindAudienceMismatch, KindOf(wrapped))

	require.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain error")))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestIsTrustError(t *testing.T) {
	for kind, trust := range map[Kind]bool{
		KindUnknown:              false,
		KindMalformedToken:       false,
		KindExpiredSignature:     true,
		KindInvalidSignature:     true,
		KindUnsupportedCertChain: true,
		KindAudienceMismatch:     true,
		KindConnection:           false,
	} {
		require.Equal(t, trust, IsTrustError(Errorf(kind, "test")), "kind %s", kind)
	}
	require.False(t, IsTrustError(nil))
}
