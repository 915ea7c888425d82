/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hashing implements the protocol's content-hash contract: a
// multihash over SHA-256, applied to the base64url-encoded wire form of a
// payload (not its decoded plaintext). See spec §4.1: the hash is always
// over the encoded string, as UTF-8 bytes.
package hashing

import (
	"crypto/sha256"

	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/encoding"
)

// DefaultAlgorithm is the only multihash code this protocol version supports.
const DefaultAlgorithm = multihash.SHA2_256

// ErrMultihashMismatch signals a recomputed multihash did not match the
// expected value.
var ErrMultihashMismatch = errors.New("hash is not valid")

// Hash computes base64url(multihash(sha256(data))) over the supplied bytes.
func Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)

	mh, err := multihash.Encode(sum[:], DefaultAlgorithm)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode multihash")
	}

	return encoding.EncodeToString(mh), nil
}

// HashEncodedContent computes the protocol hash over the *encoded* form of
// content: the base64url string itself, taken as UTF-8 bytes. This is the
// operation the protocol calls for everywhere a "hash of X" is declared in
// a request — X is always already-encoded.
func HashEncodedContent(encodedContent string) (string, error) {
	return Hash([]byte(encodedContent))
}

// IsValidHash recomputes the multihash over the raw bytes of encodedContent
// (its UTF-8 wire form) and compares it with encodedExpectedMultihash.
func IsValidHash(encodedContent, encodedExpectedMultihash string) bool {
	actual, err := HashEncodedContent(encodedContent)
	if err != nil {
		return false
	}

	return actual == encodedExpectedMultihash
}

// IsComputedUsingAlgorithm reports whether the supplied encoded multihash
// was computed using the given multihash algorithm code.
func IsComputedUsingAlgorithm(encodedMultihash string, code uint64) bool {
	decoded, err := encoding.DecodeString(encodedMultihash)
	if err != nil {
		return false
	}

	mh, err := multihash.Decode(decoded)
	if err != nil {
		return false
	}

	return uint64(mh.Code) == code
}
