/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcastError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("rejected: already in mempool")

	err := &BroadcastError{AlreadyOnChain: true, Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "already on-chain")

	err = &BroadcastError{AlreadyOnChain: false, Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "broadcast failed")
}
