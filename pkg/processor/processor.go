/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package processor folds a DID's named-anchored operation sequence into a
// resolution model, in strict (transactionNumber, operationIndex) order
// (spec §5). It is the thin orchestration layer above operationapplier
// (C5): sorting, looping, and discarding what the applier rejects.
package processor

import (
	"context"
	"sort"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/opentracing/opentracing-go"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/api/protocol"
)

var logger = log.New("sidetree-node/processor")

// Resolve applies ops, in anchored order, to an initially empty resolution
// model and returns the final model. ops need not arrive pre-sorted; a
// stable sort on (TransactionNumber, OperationIndex) is applied first so
// that resolution is independent of the caller's retrieval order.
//
// Applying operations to distinct DIDs is embarrassingly parallel; callers
// wanting that parallelism should invoke Resolve once per DID concurrently
// — this function itself is single-threaded with respect to one DID's
// model, matching the no-interleaving contract of operationapplier.Apply.
func Resolve(didUniqueSuffix string, ops []*operation.AnchoredOperation, applier protocol.OperationApplier) *protocol.ResolutionModel {
	span, _ := opentracing.StartSpanFromContext(context.Background(), "processor.Resolve")
	defer span.Finish()

	sorted := make([]*operation.AnchoredOperation, len(ops))
	copy(sorted, ops)

	sort.SliceStable(sorted, func(i, j int) bool {
		return operation.Less(sorted[i], sorted[j])
	})

	model := &protocol.ResolutionModel{}

	applied := 0

	for _, op := range sorted {
		if op.UniqueSuffix != didUniqueSuffix {
			continue
		}

		next, valid := applier.Apply(op, model)
		if !valid {
			logger.Debugf("discarding operation %d/%d for %s: invalid at current state", op.TransactionNumber, op.OperationIndex, didUniqueSuffix)
			continue
		}

		model = next
		applied++
	}

	logger.Debugf("resolved %s from %d/%d operations", didUniqueSuffix, applied, len(ops))

	return model
}
