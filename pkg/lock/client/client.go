/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package client declares the abstract bitcoin client contract (C10) the
// lock monitor drives, and the error wrapper that distinguishes an
// idempotent double-spend rebroadcast from a genuine broadcast failure.
package client

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/sidetree-node/core/pkg/lock/models"
)

// BitcoinClient is the abstract interface a real node implementation plugs
// into the lock monitor (spec §4.10).
type BitcoinClient interface {
	GetBalanceInSatoshis() (int64, error)
	GetCurrentBlockHeight() (uint32, error)
	GetRawTransaction(txid string) (*wire.MsgTx, error)

	CreateLockTransaction(amountInSatoshis int64, untilBlock uint32) (*models.BitcoinLockTransactionModel, error)
	CreateRelockTransaction(prevTxid string, prevLockTime uint32, newUntilBlock uint32) (*models.BitcoinLockTransactionModel, error)
	CreateReleaseLockTransaction(prevTxid string, prevLockTime uint32) (*models.BitcoinLockTransactionModel, error)

	BroadcastLockTransaction(tx *models.BitcoinLockTransactionModel) error
}

// BroadcastError wraps a broadcast failure and records whether it is the
// idempotent double-spend case (the transaction is already confirmed or
// already in the mempool) rather than a genuine failure — both converge to
// "the transaction is on-chain" from the monitor's point of view (spec §4.8).
type BroadcastError struct {
	AlreadyOnChain bool
	Err            error
}

func (e *BroadcastError) Error() string {
	if e.AlreadyOnChain {
		return "broadcast rejected: transaction already on-chain: " + e.Err.Error()
	}

	return "broadcast failed: " + e.Err.Error()
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}
