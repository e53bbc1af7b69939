package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable prefix carried by platform addresses.
const AddressPrefix = "inv"

// Address represents a 20-byte account address rendered as bech32 with the
// "inv" prefix.
type Address struct {
	bytes [20]byte
}

// NewAddress wraps a raw 20-byte value.
func NewAddress(b [20]byte) Address {
	return Address{bytes: b}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 20-byte form of the address.
func (a Address) Bytes() [20]byte {
	return a.bytes
}

// DecodeAddress parses a bech32 "inv1..." string back into an address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes, got %d", len(conv))
	}
	var raw [20]byte
	copy(raw[:], conv)
	return Address{bytes: raw}, nil
}

// PrivateKey wraps an ECDSA private key on the secp256k1 curve.
type PrivateKey struct {
	PrivateKey *ecdsa.PrivateKey
}

// PublicKey wraps the corresponding public key.
type PublicKey struct {
	PublicKey *ecdsa.PublicKey
}

// GeneratePrivateKey creates a fresh secp256k1 key pair.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// PubKey returns the public half of the key pair.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{PublicKey: &k.PrivateKey.PublicKey}
}

// Address derives the platform address for the public key using the keccak256
// hash of the uncompressed key, matching the Ethereum derivation.
func (p *PublicKey) Address() Address {
	raw := crypto.PubkeyToAddress(*p.PublicKey)
	var out [20]byte
	copy(out[:], raw[:])
	return Address{bytes: out}
}
