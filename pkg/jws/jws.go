/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jws implements the flattened-JWS-with-detached-payload layer
// (C2): parsing a `{protected, payload, signature}` envelope and verifying
// it as secp256k1 ECDSA (ES256K) over SHA-256, per spec §4.2/§6.
package jws

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/encoding"
	"github.com/sidetree-node/core/pkg/internal/jwk"
)

const algES256K = "ES256K"

// Sentinel errors for the JWS failure taxonomy (spec §4.2).
var (
	ErrMissingField     = errors.New("jws missing field")
	ErrUnsupportedAlg   = errors.New("jws unsupported alg")
	ErrSignatureInvalid = errors.New("jws signature invalid")
)

// JWK re-exports the protocol's JWK type for callers constructing JWS.
type JWK = jwk.JWK

// JWS is a flattened JWS with a detached payload.
type JWS struct {
	Protected string `json:"protected"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// header is the decoded protected header.
type header struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

// Kid returns the key id declared in the protected header, parsing it if
// necessary.
func (j *JWS) Kid() (string, error) {
	h, err := j.parseHeader()
	if err != nil {
		return "", err
	}

	return h.Kid, nil
}

// Verify reconstructs the signing input `protected || "." || payload`,
// verifies it against pubKey as ES256K/SHA-256, and returns nil on success.
func (j *JWS) Verify(pubKey *ecdsa.PublicKey) error {
	h, err := j.parseHeader()
	if err != nil {
		return err
	}

	if h.Alg != algES256K {
		return errors.Wrapf(ErrUnsupportedAlg, "alg '%s'", h.Alg)
	}

	sigBytes, err := encoding.DecodeString(j.Signature)
	if err != nil {
		return errors.Wrap(ErrMissingField, "signature is not valid base64url")
	}

	r, s, err := unpackSignature(sigBytes)
	if err != nil {
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	}

	signingInput := j.Protected + "." + j.Payload
	digest := sha256.Sum256([]byte(signingInput))

	if !ecdsa.Verify(pubKey, digest[:], r, s) {
		return ErrSignatureInvalid
	}

	return nil
}

// DecodedPayload returns the raw bytes of the detached payload.
func (j *JWS) DecodedPayload() ([]byte, error) {
	return encoding.DecodeString(j.Payload)
}

func (j *JWS) parseHeader() (*header, error) {
	if j.Protected == "" || j.Payload == "" || j.Signature == "" {
		return nil, errors.Wrap(ErrMissingField, "jws requires protected, payload and signature")
	}

	decoded, err := encoding.DecodeString(j.Protected)
	if err != nil {
		return nil, errors.Wrap(ErrMissingField, "protected header is not valid base64url")
	}

	var h header

	if err := json.Unmarshal(decoded, &h); err != nil {
		return nil, errors.Wrap(ErrMissingField, "protected header is not valid JSON")
	}

	if h.Kid == "" {
		return nil, errors.Wrap(ErrMissingField, "kid")
	}

	if h.Alg == "" {
		return nil, errors.Wrap(ErrMissingField, "alg")
	}

	return &h, nil
}

// unpackSignature accepts either a fixed-size R||S encoding (the form
// btcec/go-jose compact signers typically emit) or a DER-encoded
// ECDSA-Sig-Value, since spec §4.2/§6 describes the signature as DER.
func unpackSignature(sig []byte) (*big.Int, *big.Int, error) {
	var parsed struct {
		R, S *big.Int
	}

	if _, err := asn1.Unmarshal(sig, &parsed); err == nil && parsed.R != nil && parsed.S != nil {
		return parsed.R, parsed.S, nil
	}

	if len(sig)%2 != 0 || len(sig) == 0 {
		return nil, nil, errors.New("signature has invalid length")
	}

	half := len(sig) / 2

	r := new(big.Int).SetBytes(sig[:half])
	s := new(big.Int).SetBytes(sig[half:])

	return r, s, nil
}
