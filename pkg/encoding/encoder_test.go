/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("hello world"),
		[]byte(`{"type":"create"}`),
	}

	for _, c := range cases {
		encoded := EncodeToString(c)

		decoded, err := DecodeString(encoded)
		require.NoError(t, err)
		require.True(t, bytes.Equal(c, decoded), "round trip of %q returned %q", c, decoded)
	}
}

func TestDecodeString_Invalid(t *testing.T) {
	_, err := DecodeString("not base64url!!!")
	require.Error(t, err)
}
