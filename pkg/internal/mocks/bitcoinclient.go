/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/lock/client"
	"github.com/sidetree-node/core/pkg/lock/models"
)

// ErrTransactionNotFound is returned by GetRawTransaction for an unknown txid.
var ErrTransactionNotFound = errors.New("mock bitcoin client: transaction not found")

// MockBitcoinClient is a scriptable client.BitcoinClient.
type MockBitcoinClient struct {
	mutex sync.Mutex

	BalanceInSatoshis int64
	BlockHeight       uint32

	Transactions map[string]*wire.MsgTx

	LockTransaction        *models.BitcoinLockTransactionModel
	RelockTransaction      *models.BitcoinLockTransactionModel
	ReleaseLockTransaction *models.BitcoinLockTransactionModel

	CreateErr    error
	BroadcastErr error

	broadcasted []*models.BitcoinLockTransactionModel
}

// NewMockBitcoinClient returns a MockBitcoinClient with an empty transaction set.
func NewMockBitcoinClient() *MockBitcoinClient {
	return &MockBitcoinClient{Transactions: map[string]*wire.MsgTx{}}
}

// GetBalanceInSatoshis implements client.BitcoinClient.
func (m *MockBitcoinClient) GetBalanceInSatoshis() (int64, error) {
	return m.BalanceInSatoshis, nil
}

// GetCurrentBlockHeight implements client.BitcoinClient.
func (m *MockBitcoinClient) GetCurrentBlockHeight() (uint32, error) {
	return m.BlockHeight, nil
}

// GetRawTransaction implements client.BitcoinClient and resolver.TransactionFetcher.
func (m *MockBitcoinClient) GetRawTransaction(txid string) (*wire.MsgTx, error) {
	tx, ok := m.Transactions[txid]
	if !ok {
		return nil, ErrTransactionNotFound
	}

	return tx, nil
}

// CreateLockTransaction implements client.BitcoinClient.
func (m *MockBitcoinClient) CreateLockTransaction(int64, uint32) (*models.BitcoinLockTransactionModel, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	return m.LockTransaction, nil
}

// CreateRelockTransaction implements client.BitcoinClient.
func (m *MockBitcoinClient) CreateRelockTransaction(string, uint32, uint32) (*models.BitcoinLockTransactionModel, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	return m.RelockTransaction, nil
}

// CreateReleaseLockTransaction implements client.BitcoinClient.
func (m *MockBitcoinClient) CreateReleaseLockTransaction(string, uint32) (*models.BitcoinLockTransactionModel, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	return m.ReleaseLockTransaction, nil
}

// BroadcastLockTransaction implements client.BitcoinClient.
func (m *MockBitcoinClient) BroadcastLockTransaction(tx *models.BitcoinLockTransactionModel) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.BroadcastErr != nil {
		return m.BroadcastErr
	}

	m.broadcasted = append(m.broadcasted, tx)

	return nil
}

// BroadcastCallCount returns how many transactions were broadcast.
func (m *MockBitcoinClient) BroadcastCallCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.broadcasted)
}

var _ client.BitcoinClient = (*MockBitcoinClient)(nil)
