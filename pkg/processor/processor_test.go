/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/api/protocol"
)

// recordingApplier accepts every operation except those of type
// "reject-me", in the order Apply is called, appending each accepted
// operation's type to a log — used to assert that Resolve sorts before
// folding and discards what the applier rejects.
type recordingApplier struct {
	log []string
}

func (a *recordingApplier) Apply(op *operation.AnchoredOperation, model *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	if op.Type == "reject-me" {
		return model, false
	}

	a.log = append(a.log, string(op.Type))

	return &protocol.ResolutionModel{LastOperationTransactionNumber: op.TransactionNumber}, true
}

func TestResolve_SortsByTransactionThenOperationIndex(t *testing.T) {
	applier := &recordingApplier{}

	ops := []*operation.AnchoredOperation{
		{Type: operation.TypeUpdate, UniqueSuffix: "did1", TransactionNumber: 2, OperationIndex: 0},
		{Type: operation.TypeCreate, UniqueSuffix: "did1", TransactionNumber: 1, OperationIndex: 0},
		{Type: operation.TypeRecover, UniqueSuffix: "did1", TransactionNumber: 2, OperationIndex: 1},
	}

	model := Resolve("did1", ops, applier)

	require.Equal(t, []string{"create", "update", "recover"}, applier.log)
	require.Equal(t, uint64(2), model.LastOperationTransactionNumber)
}

func TestResolve_FiltersOtherDIDsAndDiscardsInvalid(t *testing.T) {
	applier := &recordingApplier{}

	ops := []*operation.AnchoredOperation{
		{Type: operation.TypeCreate, UniqueSuffix: "did1", TransactionNumber: 1},
		{Type: operation.TypeCreate, UniqueSuffix: "did2", TransactionNumber: 1},
		{Type: "reject-me", UniqueSuffix: "did1", TransactionNumber: 2},
	}

	Resolve("did1", ops, applier)

	require.Equal(t, []string{"create"}, applier.log)
}
