/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	id := LockIdentifier{TransactionID: "abc123", RedeemScriptAsHex: "76a914deadbeef88ac"}

	serialized := Serialize(id)

	out, err := Deserialize(serialized)
	require.NoError(t, err)
	require.Equal(t, id, out)
}

func TestDeserialize_Malformed(t *testing.T) {
	_, err := Deserialize("not-valid-base64url!!!")
	require.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = Deserialize("e30") // base64url("{}")
	require.ErrorIs(t, err, ErrMalformedIdentifier)
}
