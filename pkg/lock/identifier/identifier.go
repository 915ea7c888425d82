/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identifier implements the lock identifier codec (C6): a
// reversible serialization of (transactionId, redeemScriptAsHex) into a
// single opaque string (spec §4.6).
package identifier

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/encoding"
)

// ErrMalformedIdentifier is returned when a lock identifier cannot be
// decoded back into its (transactionId, redeemScriptAsHex) pair.
var ErrMalformedIdentifier = errors.New("malformed lock identifier")

// LockIdentifier is the decoded shape of a serialized lock identifier.
type LockIdentifier struct {
	TransactionID     string `json:"transactionId"`
	RedeemScriptAsHex string `json:"redeemScriptAsHex"`
}

// Serialize encodes a lock identifier as base64url(JSON(...)).
func Serialize(id LockIdentifier) string {
	// json.Marshal on this fixed, always-valid struct cannot fail.
	b, _ := json.Marshal(id)

	return encoding.EncodeToString(b)
}

// Deserialize reverses Serialize. Deserialize(Serialize(x)) == x for any x
// whose two fields are both non-empty; an identifier with an empty field is
// rejected with ErrMalformedIdentifier.
func Deserialize(serialized string) (LockIdentifier, error) {
	raw, err := encoding.DecodeString(serialized)
	if err != nil {
		return LockIdentifier{}, errors.Wrap(ErrMalformedIdentifier, "not valid base64url")
	}

	var id LockIdentifier
	if err := json.Unmarshal(raw, &id); err != nil {
		return LockIdentifier{}, errors.Wrap(ErrMalformedIdentifier, "not valid JSON")
	}

	if id.TransactionID == "" || id.RedeemScriptAsHex == "" {
		return LockIdentifier{}, errors.Wrap(ErrMalformedIdentifier, "missing field")
	}

	return id, nil
}
