package ownership_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanityforge/vanity-gateway/internal/domain"
	"github.com/vanityforge/vanity-gateway/internal/ownership"
)

func signMessage(t *testing.T, wallet *solana.Wallet, message []byte) string {
	t.Helper()
	sig, err := wallet.PrivateKey.Sign(message)
	require.NoError(t, err)
	return sig.String()
}

func TestVerify(t *testing.T) {
	wallet := solana.NewWallet()
	message := []byte("claim vanity order for foo")
	signature := signMessage(t, wallet, message)

	t.Run("valid signature verifies", func(t *testing.T) {
		err := ownership.Verify(message, signature, wallet.PublicKey().String())
		assert.NoError(t, err)
	})

	t.Run("different message fails", func(t *testing.T) {
		err := ownership.Verify([]byte("claim vanity order for bar"), signature, wallet.PublicKey().String())
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	})

	t.Run("truncated message fails", func(t *testing.T) {
		err := ownership.Verify(message[:len(message)-1], signature, wallet.PublicKey().String())
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	})

	t.Run("different key fails", func(t *testing.T) {
		other := solana.NewWallet()
		err := ownership.Verify(message, signature, other.PublicKey().String())
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	})

	t.Run("signature from another message fails", func(t *testing.T) {
		otherSig := signMessage(t, wallet, []byte("some other message"))
		err := ownership.Verify(message, otherSig, wallet.PublicKey().String())
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	})

	t.Run("malformed identity", func(t *testing.T) {
		tests := []string{
			"",
			"not-base58-0OIl",
			"abc",                        // too short
			wallet.PublicKey().String() + wallet.PublicKey().String(), // too long
		}
		for _, identity := range tests {
			err := ownership.Verify(message, signature, identity)
			assert.ErrorIs(t, err, domain.ErrMalformedIdentity, "identity %q", identity)
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		tests := []string{
			"",
			"not-base58-0OIl",
			"abc", // too short for a 64-byte signature
			wallet.PublicKey().String(), // 32 bytes, wrong length
		}
		for _, sig := range tests {
			err := ownership.Verify(message, sig, wallet.PublicKey().String())
			assert.ErrorIs(t, err, domain.ErrMalformedSignature, "signature %q", sig)
		}
	})

	t.Run("empty message verifies against its own signature", func(t *testing.T) {
		emptySig := signMessage(t, wallet, nil)
		assert.NoError(t, ownership.Verify(nil, emptySig, wallet.PublicKey().String()))
		assert.ErrorIs(t, ownership.Verify([]byte("x"), emptySig, wallet.PublicKey().String()),
			domain.ErrVerificationFailed)
	})
}
