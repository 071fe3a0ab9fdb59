// Package ownership validates that a claimed wallet identity signed a message.
package ownership

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/vanityforge/vanity-gateway/internal/domain"
)

// Verify checks that signatureB58 is a valid ed25519 signature over message
// by the key behind identityB58. The message bytes are used bit-for-bit as
// supplied; no re-encoding or additional hashing happens here.
//
// Verify is a pure function: no I/O, no side effects, deterministic. Failures
// map to typed errors so malformed input never panics:
//   - domain.ErrMalformedIdentity when the identity is not a valid base58
//     32-byte public key
//   - domain.ErrMalformedSignature when the signature is not a valid base58
//     64-byte signature
//   - domain.ErrVerificationFailed when the signature does not validate
func Verify(message []byte, signatureB58 string, identityB58 string) error {
	pubkey, err := solana.PublicKeyFromBase58(identityB58)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedIdentity, err)
	}

	signature, err := solana.SignatureFromBase58(signatureB58)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedSignature, err)
	}

	if !pubkey.Verify(message, signature) {
		return domain.ErrVerificationFailed
	}

	return nil
}
