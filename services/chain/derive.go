package chain

import (
	"fmt"

	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// DeriveAddressAtIndex derives the deposit address for a derivation index
// from the merchant's account-level extended public key. Children are
// non-hardened, so no private key material is held by this process; the
// merchant wallet derives the matching spending keys offline from the same
// account path.
func DeriveAddressAtIndex(xpub string, index uint64) (common.Address, error) {
	if xpub == "" {
		return common.Address{}, fmt.Errorf("merchant xpub not configured")
	}
	if index > hdkeychain.HardenedKeyStart-1 {
		return common.Address{}, fmt.Errorf("derivation index %d out of range", index)
	}

	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse merchant xpub: %w", err)
	}
	if key.IsPrivate() {
		return common.Address{}, fmt.Errorf("merchant key must be an extended public key")
	}

	child, err := key.Child(uint32(index))
	if err != nil {
		return common.Address{}, fmt.Errorf("derive child %d: %w", index, err)
	}
	pub, err := child.ECPubKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("child %d public key: %w", index, err)
	}
	return gethcrypto.PubkeyToAddress(*pub.ToECDSA()), nil
}
