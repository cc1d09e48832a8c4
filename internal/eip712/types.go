// Package eip712 implements the EIP-712 typed-data hashing and signing
// scheme as a small, pure, generic encoder: it knows nothing about
// StorageData specifically. internal/eip712's Storage-domain helpers
// (storage.go) are built on top of it the same way a generated contract
// binding sits on top of go-ethereum's core signing primitives.
package eip712

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/akave-ai/akavesdk/internal/crypto"
)

// Field is one member of a typed-data struct definition.
type Field struct {
	Name string
	Type string
}

// Types maps a struct type name to its ordered field list. Field order
// within a type is significant and must match the on-chain struct layout;
// it is NOT sorted — callers declare fields in encoding order.
type Types map[string][]Field

// Domain is the EIP-712 domain separator input.
//
//	EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func domainTypes() Types {
	return Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
	}
}

func (d Domain) message() map[string]any {
	return map[string]any{
		"name":              d.Name,
		"version":           d.Version,
		"chainId":           d.ChainID,
		"verifyingContract": d.VerifyingContract,
	}
}

// EncodeType renders the canonical EIP-712 type signature:
// primaryType(fieldType fieldName,...).
func EncodeType(primaryType string, types Types) (string, error) {
	fields, ok := types[primaryType]
	if !ok {
		return "", fmt.Errorf("eip712: unknown type %q", primaryType)
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Type + " " + f.Name
	}
	return primaryType + "(" + strings.Join(parts, ",") + ")", nil
}

// TypeHash is keccak256(EncodeType(primaryType, types)).
func TypeHash(primaryType string, types Types) ([32]byte, error) {
	encoded, err := EncodeType(primaryType, types)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256([]byte(encoded)), nil
}

// EncodeData computes the EIP-712 struct hash:
// keccak256(typeHash || concat(encodeValue(field) for field in types[primaryType])).
func EncodeData(primaryType string, message map[string]any, types Types) ([32]byte, error) {
	fields, ok := types[primaryType]
	if !ok {
		return [32]byte{}, fmt.Errorf("eip712: unknown type %q", primaryType)
	}
	typeHash, err := TypeHash(primaryType, types)
	if err != nil {
		return [32]byte{}, err
	}

	buf := make([]byte, 0, 32*(len(fields)+1))
	buf = append(buf, typeHash[:]...)
	for _, f := range fields {
		v, ok := message[f.Name]
		if !ok {
			return [32]byte{}, fmt.Errorf("eip712: message missing field %q", f.Name)
		}
		encoded, err := EncodeValue(v, f.Type)
		if err != nil {
			return [32]byte{}, fmt.Errorf("eip712: field %q: %w", f.Name, err)
		}
		buf = append(buf, encoded[:]...)
	}
	return crypto.Keccak256(buf), nil
}

// EncodeValue encodes a single atomic-type value into its 32-byte word per
// the EIP-712 encoding rules. Dynamic types (string, bytes) are hashed;
// everything else is padded in place.
func EncodeValue(value any, typ string) ([32]byte, error) {
	switch typ {
	case "string":
		s, ok := value.(string)
		if !ok {
			return [32]byte{}, fmt.Errorf("expected string, got %T", value)
		}
		return crypto.Keccak256([]byte(s)), nil

	case "bytes":
		b, ok := value.([]byte)
		if !ok {
			return [32]byte{}, fmt.Errorf("expected []byte, got %T", value)
		}
		return crypto.Keccak256(b), nil

	case "bytes32":
		var out [32]byte
		switch v := value.(type) {
		case [32]byte:
			out = v
		case []byte:
			if len(v) != 32 {
				return [32]byte{}, fmt.Errorf("expected 32 bytes, got %d", len(v))
			}
			copy(out[:], v)
		default:
			return [32]byte{}, fmt.Errorf("expected bytes32, got %T", value)
		}
		return out, nil

	case "uint8", "uint64", "uint256":
		n, err := toBigInt(value)
		if err != nil {
			return [32]byte{}, err
		}
		if n.Sign() < 0 {
			return [32]byte{}, fmt.Errorf("%s cannot be negative: %s", typ, n)
		}
		if max, ok := uintMax(typ); ok && n.Cmp(max) > 0 {
			return [32]byte{}, fmt.Errorf("%s value out of range: %s", typ, n)
		}
		var out [32]byte
		n.FillBytes(out[:])
		return out, nil

	case "address":
		addr, err := toAddress(value)
		if err != nil {
			return [32]byte{}, err
		}
		var out [32]byte
		copy(out[12:], addr.Bytes())
		return out, nil

	default:
		return [32]byte{}, fmt.Errorf("unsupported type %q", typ)
	}
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil *big.Int")
		}
		return v, nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int:
		if v < 0 {
			return nil, fmt.Errorf("negative int %d", v)
		}
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", value)
	}
}

func uintMax(typ string) (*big.Int, bool) {
	switch typ {
	case "uint8":
		return big.NewInt(0xff), true
	case "uint64":
		max := new(big.Int).SetUint64(^uint64(0))
		return max, true
	default:
		return nil, false
	}
}

func toAddress(value any) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case []byte:
		if len(v) != 20 {
			return common.Address{}, fmt.Errorf("address must be 20 bytes, got %d", len(v))
		}
		return common.BytesToAddress(v), nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("invalid address %q", v)
		}
		return common.HexToAddress(v), nil
	default:
		return common.Address{}, fmt.Errorf("expected address, got %T", value)
	}
}

// DomainSeparator hashes the EIP712Domain struct.
func DomainSeparator(domain Domain) ([32]byte, error) {
	return EncodeData("EIP712Domain", domain.message(), domainTypes())
}

// HashTypedData computes the final EIP-712 digest:
// keccak256(0x1901 || domainSeparator || structHash(primaryType, message)).
func HashTypedData(domain Domain, primaryType string, message map[string]any, types Types) ([32]byte, error) {
	sep, err := DomainSeparator(domain)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: domain separator: %w", err)
	}
	structHash, err := EncodeData(primaryType, message, types)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: struct hash: %w", err)
	}

	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, sep[:]...)
	buf = append(buf, structHash[:]...)
	return crypto.Keccak256(buf), nil
}

// Sign hashes and signs a typed-data message, returning a 65-byte r||s||v
// signature with v normalized to {27,28}.
func Sign(key *ecdsa.PrivateKey, domain Domain, primaryType string, message map[string]any, types Types) ([65]byte, error) {
	digest, err := HashTypedData(domain, primaryType, message, types)
	if err != nil {
		return [65]byte{}, err
	}
	return crypto.Sign(key, digest)
}

// Recover recovers the signer address from a signed typed-data message.
func Recover(sig [65]byte, domain Domain, primaryType string, message map[string]any, types Types) (common.Address, error) {
	digest, err := HashTypedData(domain, primaryType, message, types)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.Recover(digest, sig)
}
