/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwk adapts go-jose's JSONWebKey to also carry secp256k1 keys,
// which go-jose does not support natively. It is the only JWK type the
// protocol uses: recovery keys, update keys, and a DID document's signing
// keys are all ES256K (secp256k1) per spec §4.2/§6.
package jwk

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/json"

	"github.com/btcsuite/btcd/btcec"
)

const (
	secp256k1Crv  = "secp256k1"
	secp256k1Kty  = "EC"
	secp256k1Size = 32
	bitsPerByte   = 8
)

// ErrInvalidKey is returned when a JWK fails curve/point validation.
var ErrInvalidKey = errors.New("invalid JWK")

// JWK is a JSON Web Key, wrapping go-jose's JSONWebKey with secp256k1 support.
type JWK struct {
	jose.JSONWebKey

	Kty string
	Crv string
}

// PublicKeyBytes returns the compressed SEC1 encoding of the public key for
// secp256k1 keys, and the PKIX DER encoding otherwise.
func (j *JWK) PublicKeyBytes() ([]byte, error) {
	if isSecp256k1(j.Kty, j.Crv) {
		ecPubKey, ok := j.Key.(*ecdsa.PublicKey)
		if !ok {
			priv, ok := j.Key.(*ecdsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("unsupported secp256k1 key value in kid '%s'", j.KeyID)
			}

			ecPubKey = &priv.PublicKey
		}

		pubKey := &btcec.PublicKey{
			Curve: btcec.S256(),
			X:     ecPubKey.X,
			Y:     ecPubKey.Y,
		}

		return pubKey.SerializeCompressed(), nil
	}

	pubKBytes, err := x509.MarshalPKIXPublicKey(j.Public().Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key bytes in kid '%s': %w", j.KeyID, err)
	}

	return pubKBytes, nil
}

// ToECDSA returns the secp256k1 public key as a stdlib *ecdsa.PublicKey,
// suitable for use with the jws package's ES256K verifier.
func (j *JWK) ToECDSA() (*ecdsa.PublicKey, error) {
	if !isSecp256k1(j.Kty, j.Crv) {
		return nil, fmt.Errorf("kid '%s' is not a secp256k1 key", j.KeyID)
	}

	switch key := j.Key.(type) {
	case *ecdsa.PublicKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return &key.PublicKey, nil
	default:
		return nil, fmt.Errorf("unsupported secp256k1 key value in kid '%s'", j.KeyID)
	}
}

// Validate checks that the key is well-formed for its declared curve.
func (j *JWK) Validate() error {
	if isSecp256k1(j.Kty, j.Crv) {
		_, err := j.ToECDSA()

		return err
	}

	if j.Key == nil {
		return ErrInvalidKey
	}

	return nil
}

// UnmarshalJSON reads a key from its JSON representation.
func (j *JWK) UnmarshalJSON(jwkBytes []byte) error {
	var key rawJWK

	if err := json.Unmarshal(jwkBytes, &key); err != nil {
		return fmt.Errorf("unable to read JWK: %w", err)
	}

	if isSecp256k1(key.Kty, key.Crv) {
		parsed, err := unmarshalSecp256k1(&key)
		if err != nil {
			return fmt.Errorf("unable to read JWK: %w", err)
		}

		*j = *parsed
	} else {
		var joseJWK jose.JSONWebKey

		if err := json.Unmarshal(jwkBytes, &joseJWK); err != nil {
			return fmt.Errorf("unable to read jose JWK: %w", err)
		}

		j.JSONWebKey = joseJWK
	}

	j.Kty = key.Kty
	j.Crv = key.Crv

	return nil
}

// MarshalJSON serializes the given key to its JSON representation.
func (j *JWK) MarshalJSON() ([]byte, error) {
	if isSecp256k1(j.Kty, j.Crv) {
		return marshalSecp256k1(j)
	}

	return (&j.JSONWebKey).MarshalJSON()
}

func isSecp256k1(kty, crv string) bool {
	return strings.EqualFold(kty, secp256k1Kty) && strings.EqualFold(crv, secp256k1Crv)
}

func unmarshalSecp256k1(raw *rawJWK) (*JWK, error) {
	if raw.X == nil || raw.Y == nil {
		return nil, ErrInvalidKey
	}

	curve := btcec.S256()

	if curveSize(curve) != len(raw.X.data) || curveSize(curve) != len(raw.Y.data) {
		return nil, ErrInvalidKey
	}

	x := raw.X.bigInt()
	y := raw.Y.bigInt()

	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidKey
	}

	var key interface{} = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}

	if raw.D != nil {
		key = &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
			D:         raw.D.bigInt(),
		}
	}

	return &JWK{
		JSONWebKey: jose.JSONWebKey{Key: key, KeyID: raw.Kid, Algorithm: raw.Alg, Use: raw.Use},
	}, nil
}

func marshalSecp256k1(j *JWK) ([]byte, error) {
	var raw rawJWK

	switch key := j.Key.(type) {
	case *ecdsa.PublicKey:
		raw = rawJWK{
			Kty: secp256k1Kty,
			Crv: secp256k1Crv,
			X:   newFixedSizeBuffer(key.X.Bytes(), secp256k1Size),
			Y:   newFixedSizeBuffer(key.Y.Bytes(), secp256k1Size),
		}
	case *ecdsa.PrivateKey:
		raw = rawJWK{
			Kty: secp256k1Kty,
			Crv: secp256k1Crv,
			X:   newFixedSizeBuffer(key.X.Bytes(), secp256k1Size),
			Y:   newFixedSizeBuffer(key.Y.Bytes(), secp256k1Size),
			D:   newFixedSizeBuffer(key.D.Bytes(), secp256k1Size),
		}
	default:
		return nil, fmt.Errorf("unsupported secp256k1 key value in kid '%s'", j.KeyID)
	}

	raw.Kid = j.KeyID
	raw.Alg = j.Algorithm
	raw.Use = j.Use

	return json.Marshal(raw)
}

// rawJWK contains the subset of JWK JSON properties this package reads.
type rawJWK struct {
	Use string `json:"use,omitempty"`
	Kty string `json:"kty,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	Alg string `json:"alg,omitempty"`

	X *byteBuffer `json:"x,omitempty"`
	Y *byteBuffer `json:"y,omitempty"`
	D *byteBuffer `json:"d,omitempty"`
}

func curveSize(curve *btcec.KoblitzCurve) int {
	bits := curve.Params().BitSize

	div := bits / bitsPerByte
	if bits%bitsPerByte == 0 {
		return div
	}

	return div + 1
}

// byteBuffer is a slice of bytes serialized as url-safe base64.
type byteBuffer struct {
	data []byte
}

func (b *byteBuffer) UnmarshalJSON(data []byte) error {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}

	if encoded == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}

	*b = byteBuffer{data: decoded}

	return nil
}

func (b *byteBuffer) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b.data))
}

func (b byteBuffer) bigInt() *big.Int {
	return new(big.Int).SetBytes(b.data)
}

func newFixedSizeBuffer(data []byte, length int) *byteBuffer {
	padded := make([]byte, length-len(data))

	return &byteBuffer{data: append(padded, data...)}
}
