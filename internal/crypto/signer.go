/**
 * @description
 * This file contains the signing identity used by the relay. It holds the
 * secp256k1 private key, exposes the derived address, and performs EIP-712
 * typed data signing and verification.
 *
 * Key features:
 * - Identity: A Signer is built once from a hex private key and is immutable afterwards.
 * - EIP-712 Signing: Hashes the domain and primary type with go-ethereum's `apitypes`
 *   and signs the `\x19\x01` digest, returning a 65-byte signature with V in {27, 28}.
 * - Verification: Recovers the signer address from a signature over the same typed data.
 *
 * @dependencies
 * - github.com/ethereum/go-ethereum/crypto: For key management and signing.
 * - github.com/ethereum/go-ethereum/signer/core/apitypes: For EIP-712 data structures.
 */

package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrInvalidSignature is returned when a signature cannot be decoded or recovered.
var ErrInvalidSignature = errors.New("invalid signature")

// Signer holds a private key and the address derived from it.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// FromPrivateKeyHex parses a hex private key. The "0x" prefix is optional.
func FromPrivateKeyHex(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key format: %w", err)
	}
	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// GenerateKey creates a signer with a fresh random key.
func GenerateKey() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the Ethereum address derived from the public key.
func (s *Signer) Address() common.Address {
	return s.address
}

/**
 * @description
 * TypedDataDigest computes the EIP-712 signing digest:
 * keccak256(`\x19\x01` || domainSeparator || hashStruct(message)).
 *
 * @param typedData The EIP-712 payload.
 * @returns The 32-byte digest, or an error if the domain or message cannot be hashed.
 */
func TypedDataDigest(typedData apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash EIP712 domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash EIP712 message: %w", err)
	}

	prefixedData := []byte{0x19, 0x01}
	prefixedData = append(prefixedData, domainSeparator...)
	prefixedData = append(prefixedData, messageHash...)
	return crypto.Keccak256(prefixedData), nil
}

// SignTypedData signs an EIP-712 payload and returns the 0x-prefixed hex signature.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) (string, error) {
	digest, err := TypedDataDigest(typedData)
	if err != nil {
		return "", err
	}

	signatureBytes, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign the digest: %w", err)
	}
	if len(signatureBytes) != crypto.SignatureLength {
		return "", errors.New("signature generated with incorrect length")
	}

	// crypto.Sign yields V in {0, 1}; the exchange contracts expect {27, 28}.
	signatureBytes[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(signatureBytes), nil
}

/**
 * @description
 * RecoverTypedDataSigner returns the address that produced signatureHex over typedData.
 *
 * @notes
 * - Accepts V in either {0, 1} or {27, 28}.
 */
func RecoverTypedDataSigner(typedData apitypes.TypedData, signatureHex string) (common.Address, error) {
	digest, err := TypedDataDigest(typedData)
	if err != nil {
		return common.Address{}, err
	}

	signatureBytes, err := hexutil.Decode(signatureHex)
	if err != nil || len(signatureBytes) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	if signatureBytes[crypto.RecoveryIDOffset] >= 27 {
		signatureBytes[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(digest, signatureBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyTypedData reports whether signatureHex over typedData was produced by expected.
func VerifyTypedData(typedData apitypes.TypedData, signatureHex string, expected common.Address) (bool, error) {
	recovered, err := RecoverTypedDataSigner(typedData, signatureHex)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}
