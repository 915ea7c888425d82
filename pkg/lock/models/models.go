/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package models defines the bitcoin value-time-lock subsystem's durable
// and transient data shapes (spec §3, §4.9, §4.10).
package models

// RecordType tags a lock transaction record by the action that produced it.
type RecordType string

const (
	// RecordTypeCreate is the first lock in a chain.
	RecordTypeCreate RecordType = "Create"
	// RecordTypeRelock renews an existing lock to a new unlock height.
	RecordTypeRelock RecordType = "Relock"
	// RecordTypeReturnToWallet releases the locked funds back to the wallet.
	RecordTypeReturnToWallet RecordType = "ReturnToWallet"
)

// BitcoinLockTransactionModel is what a bitcoin client contract (C10)
// returns from any of the create/relock/release transaction builders.
type BitcoinLockTransactionModel struct {
	TransactionID               string
	RedeemScriptAsHex           string
	SerializedTransactionObject []byte
	TransactionFee              int64
}

// TransactionRecord is a single append-only entry in the lock transaction
// store (C9). RecordID is not part of the wire protocol; it exists purely
// so a store implementation can give callers a stable handle to one entry.
type TransactionRecord struct {
	RecordID                    string
	Type                        RecordType
	TransactionID               string
	RedeemScriptAsHex           string
	RawTransaction              []byte
	DesiredLockAmountInSatoshis int64
	CreateTimestamp             int64
}

// ValueTimeLock is a resolved, validated value-time-lock read back off chain
// (spec §4.6–4.7).
type ValueTimeLock struct {
	Identifier            string
	AmountLocked          int64
	UnlockTransactionTime uint32
	Owner                 string
}
