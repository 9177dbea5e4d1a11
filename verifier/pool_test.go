package verifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/return42/browserid/browseridtest"
	"github.com/return42/browserid/errors"
	"github.com/return42/browserid/supportdoc"
)

func TestWorkerPoolVerify(t *testing.T) {
	inner, _ := newTestVerifier()
	pool := NewWorkerPoolVerifier(inner, 4)
	defer pool.Close()

	results := make(chan error, 32)
	for i := 0; i < 32; i++ {
		go func() {
			assertion := browseridtest.MakeAssertion("alice@example.com", "https://rp.example.com")
			result, err := pool.Verify(assertion, "https://rp.example.com")
			if err == nil && result.Email != "alice@example.com" {
				err = fmt.Errorf("unexpected email %q", result.Email)
			}
			results <- err
		}()
	}
	for i := 0; i < 32; i++ {
		require.NoError(t, <-results)
	}
}

func TestWorkerPoolPropagatesErrors(t *testing.T) {
	inner, _ := newTestVerifier()
	pool := NewWorkerPoolVerifier(inner, 2)
	defer pool.Close()

	_, err := pool.Verify("junk", "https://rp.example.com")
	require.Error(t, err)
	require.Equal(t, errors.KindMalformedToken, errors.KindOf(err))
}

func TestWorkerPoolDefaultWorkerCount(t *testing.T) {
	inner := NewLocalVerifier(WithResolver(supportdoc.NewManager(
		supportdoc.WithFetcher(&browseridtest.Fetcher{}))))
	pool := NewWorkerPoolVerifier(inner, 0)
	defer pool.Close()

	assertion := browseridtest.MakeAssertion("alice@example.com", "https://rp.example.com")
	result, err := pool.Verify(assertion, "https://rp.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusOkay, result.Status)
}

func TestWorkerPoolCloseIsIdempotent(t *testing.T) {
	inner, _ := newTestVerifier()
	pool := NewWorkerPoolVerifier(inner, 1)
	pool.Close()
	pool.Close()
}
