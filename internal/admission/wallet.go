package admission

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet validation errors.
var (
	ErrBadWalletEncoding = errors.New("wallet address is not valid base58")
	ErrBadWalletLength   = errors.New("wallet address is not a 32-byte key")
	ErrWalletOffCurve    = errors.New("wallet address is not on the ed25519 curve")
)

// ValidateWalletAddress checks that an address decodes to a 32-byte
// on-curve ed25519 public key. Off-curve addresses are program-derived
// accounts, not wallets that can be followed.
func ValidateWalletAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadWalletEncoding, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrBadWalletLength, len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return ErrWalletOffCurve
	}
	return nil
}
