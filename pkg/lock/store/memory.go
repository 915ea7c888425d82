/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sidetree-node/core/pkg/lock/models"
)

// MemoryStore is an in-process Store, useful for tests and for a monitor
// that does not need to survive process restarts.
type MemoryStore struct {
	mutex   sync.Mutex
	records []*models.TransactionRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(record *models.TransactionRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record.RecordID == "" {
		record.RecordID = uuid.New().String()
	}

	s.records = append(s.records, record)

	return nil
}

// GetLastLock implements Store.
func (s *MemoryStore) GetLastLock() (*models.TransactionRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.records) == 0 {
		return nil, nil
	}

	return s.records[len(s.records)-1], nil
}

var _ Store = (*MemoryStore)(nil)
