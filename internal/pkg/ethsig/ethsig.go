// Package ethsig implements Ethereum-convention message signing verification:
// the caller signs keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg)
// with a secp256k1 key and we recover the signing address from the signature.
package ethsig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrRecoveryFailed     = errors.New("signature recovery failed")
)

// HashMessage returns the personal-sign digest of msg.
func HashMessage(msg string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverAddress recovers the lowercase hex address that signed msg.
// Accepts 65-byte hex signatures with or without a 0x prefix; the recovery id
// may be 0/1 or the legacy 27/28.
func RecoverAddress(msg, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", ErrMalformedSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(HashMessage(msg), sig)
	if err != nil {
		return "", ErrRecoveryFailed
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// Matches reports whether signature over msg was produced by address
// (case-insensitive comparison).
func Matches(address, msg, signature string) bool {
	recovered, err := RecoverAddress(msg, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered, address)
}

// Normalize returns the canonical lowercase form of a wallet address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
