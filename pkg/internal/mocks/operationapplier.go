/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocks provides hand-rolled test doubles for the interfaces
// exported by the lock subsystem and the operation processor, in the style
// of the method packages' own mocks.
package mocks

import (
	"sync"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/api/protocol"
)

// MockOperationApplier is a scriptable protocol.OperationApplier.
type MockOperationApplier struct {
	mutex sync.Mutex

	// ApplyFunc, when set, overrides the canned result/valid return.
	ApplyFunc func(op *operation.AnchoredOperation, model *protocol.ResolutionModel) (*protocol.ResolutionModel, bool)

	Result *protocol.ResolutionModel
	Valid  bool

	calls []*operation.AnchoredOperation
}

// Apply implements protocol.OperationApplier.
func (m *MockOperationApplier) Apply(op *operation.AnchoredOperation, model *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	m.mutex.Lock()
	m.calls = append(m.calls, op)
	m.mutex.Unlock()

	if m.ApplyFunc != nil {
		return m.ApplyFunc(op, model)
	}

	return m.Result, m.Valid
}

// ApplyCallCount returns how many times Apply has been called.
func (m *MockOperationApplier) ApplyCallCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.calls)
}

// ApplyArgsForCall returns the operation passed to the i'th Apply call.
func (m *MockOperationApplier) ApplyArgsForCall(i int) *operation.AnchoredOperation {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.calls[i]
}

var _ protocol.OperationApplier = (*MockOperationApplier)(nil)
