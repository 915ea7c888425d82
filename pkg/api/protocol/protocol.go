/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package protocol defines the resolution model (C5's state) and the
// OperationApplier contract a protocol version implements.
package protocol

import (
	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/document"
	"github.com/sidetree-node/core/pkg/internal/jwk"
)

// Metadata is the internal per-DID state that is not part of the external
// document: the current recovery key and the commitments for the next
// update/recovery operation (spec §3).
type Metadata struct {
	RecoveryKey         *jwk.JWK
	NextRecoveryOtpHash string
	NextUpdateOtpHash   string
}

// Clone returns a copy of the metadata. The RecoveryKey pointer is shared
// with m, not copied.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}

	clone := *m

	return &clone
}

// ResolutionModel is the mutable per-DID state produced by folding
// anchored operations in order.
type ResolutionModel struct {
	Document                      *document.Document
	Metadata                      *Metadata
	LastOperationTransactionNumber uint64
}

// Clone returns a deep copy of the resolution model, so Apply can mutate a
// working copy and only publish it on success (spec §5 atomicity).
func (m *ResolutionModel) Clone() *ResolutionModel {
	if m == nil {
		return nil
	}

	return &ResolutionModel{
		Document:                       m.Document.Clone(),
		Metadata:                       m.Metadata.Clone(),
		LastOperationTransactionNumber: m.LastOperationTransactionNumber,
	}
}

// OperationApplier is the per-protocol-version state-transition function
// (C5). It must never panic/error to the caller for malformed or invalid
// input: it returns valid=false and the unmodified input model instead.
type OperationApplier interface {
	Apply(op *operation.AnchoredOperation, model *ResolutionModel) (result *ResolutionModel, valid bool)
}
