package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanityforge/vanity-gateway/internal/webhook"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`[{"signature":"sig-1","nativeTransfers":[]}]`)

	t.Run("accepts a signature over the exact body", func(t *testing.T) {
		header := webhook.Sign(secret, body)
		require.NoError(t, webhook.VerifySignature(secret, body, header))
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		header := webhook.Sign(secret, body)
		tampered := []byte(`[{"signature":"sig-2","nativeTransfers":[]}]`)
		err := webhook.VerifySignature(secret, tampered, header)
		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("rejects a signature from a different secret", func(t *testing.T) {
		header := webhook.Sign("other-secret", body)
		err := webhook.VerifySignature(secret, body, header)
		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		err := webhook.VerifySignature(secret, body, "")
		assert.ErrorIs(t, err, webhook.ErrMissingSignature)
	})

	t.Run("rejects malformed headers", func(t *testing.T) {
		for _, header := range []string{
			"deadbeef",
			"sha256=",
			"sha256=not-hex",
			"sha512=deadbeef",
		} {
			err := webhook.VerifySignature(secret, body, header)
			assert.ErrorIs(t, err, webhook.ErrInvalidSignature, header)
		}
	})
}
