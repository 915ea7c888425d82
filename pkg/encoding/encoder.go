/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package encoding provides base64url encode/decode helpers used for every
// wire payload in the protocol: suffix data, operation data, and signed
// data are all carried as base64url(UTF-8 JSON).
package encoding

import "encoding/base64"

// EncodeToString encodes binary data using base64url, without padding.
func EncodeToString(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeString decodes a base64url string without padding.
func DecodeString(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
