package identity

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"
)

// slip10KeyMaterial is the HMAC key for the SLIP-0010 Ed25519 master-key
// step. Changing it changes every derived identity.
const slip10KeyMaterial = "ed25519 seed"

// SecretSize is the length of the raw private scalar in bytes.
const SecretSize = 32

// ConfigError reports an invalid credential. It is terminal: a wrong key is
// not a transient condition, so no caller should retry derivation.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "identity config: " + e.Reason
}

// Identity is a derived Ed25519 signing identity. The private scalar never
// leaves this package; callers only see signatures and the public key.
type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// FromRawSecret derives an identity from a 32-byte private scalar.
func FromRawSecret(secret []byte) (*Identity, error) {
	if len(secret) != SecretSize {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("raw secret must be %d bytes, got %d", SecretSize, len(secret)),
		}
	}
	priv := ed25519.NewKeyFromSeed(secret)
	return &Identity{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// FromHex derives an identity from a 64-character hex secret, with or
// without a 0x prefix.
func FromHex(s string) (*Identity, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	secret, err := hex.DecodeString(s)
	if err != nil {
		return nil, &ConfigError{Reason: "private key is not valid hex: " + err.Error()}
	}
	return FromRawSecret(secret)
}

// FromMnemonic derives an identity from a 12- or 24-word BIP-39 phrase.
//
// The phrase is expanded to a BIP-39 seed with an empty passphrase, then the
// SLIP-0010 Ed25519 master key is taken: the first 32 bytes of
// HMAC-SHA-512(key="ed25519 seed", seed). No child-key path is applied; the
// master key is the signing scalar. This must match the derivation the user's
// on-chain key registration used, bit for bit.
func FromMnemonic(phrase string) (*Identity, error) {
	words := strings.Fields(phrase)
	if n := len(words); n != 12 && n != 24 {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("mnemonic must be 12 or 24 words, got %d", n),
		}
	}
	normalized := strings.Join(words, " ")
	if !bip39.IsMnemonicValid(normalized) {
		return nil, &ConfigError{Reason: "mnemonic failed BIP-39 word-list or checksum validation"}
	}
	seed := bip39.NewSeed(normalized, "")

	mac := hmac.New(sha512.New, []byte(slip10KeyMaterial))
	mac.Write(seed)
	master := mac.Sum(nil)

	return FromRawSecret(master[:SecretSize])
}

// Sign returns the deterministic 64-byte Ed25519 signature over msg.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.priv, msg)
}

// Verify reports whether sig is a valid signature over msg by this identity.
func (id *Identity) Verify(msg, sig []byte) bool {
	return ed25519.Verify(id.pub, msg, sig)
}

// PublicKey returns a copy of the 32-byte public verification key.
func (id *Identity) PublicKey() []byte {
	out := make([]byte, len(id.pub))
	copy(out, id.pub)
	return out
}

// PublicKeyHex returns the 0x-prefixed lowercase hex public key. This exact
// string is what gets registered on-chain; it is logged verbatim and never
// reformatted.
func (id *Identity) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(id.pub)
}
