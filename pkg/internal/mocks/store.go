/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/sidetree-node/core/pkg/lock/models"
	"github.com/sidetree-node/core/pkg/lock/store"
)

// MockStore is a scriptable store.Store.
type MockStore struct {
	mutex sync.Mutex

	AppendErr  error
	GetLastErr error
	records    []*models.TransactionRecord
}

// Append implements store.Store.
func (m *MockStore) Append(record *models.TransactionRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.AppendErr != nil {
		return m.AppendErr
	}

	m.records = append(m.records, record)

	return nil
}

// GetLastLock implements store.Store.
func (m *MockStore) GetLastLock() (*models.TransactionRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.GetLastErr != nil {
		return nil, m.GetLastErr
	}

	if len(m.records) == 0 {
		return nil, nil
	}

	return m.records[len(m.records)-1], nil
}

// Records returns every appended record, in insertion order.
func (m *MockStore) Records() []*models.TransactionRecord {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]*models.TransactionRecord{}, m.records...)
}

var _ store.Store = (*MockStore)(nil)
