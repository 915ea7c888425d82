/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package store implements the lock transaction store (C9): an append-only
// record of every lock/relock/release transaction the monitor has produced,
// durable before Append returns (spec §4.9).
package store

import (
	"github.com/sidetree-node/core/pkg/lock/models"
)

// Store is the append-only lock transaction log the monitor reconciles
// against on every tick.
type Store interface {
	// Append durably persists record before returning. No compaction: the
	// store is a full audit history, not a snapshot.
	Append(record *models.TransactionRecord) error

	// GetLastLock returns the most recently appended record, or nil if the
	// store is empty.
	GetLastLock() (*models.TransactionRecord, error)
}
