/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operationapplier implements C5: the per-operation state
// transition against a resolution model (spec §4.5). It never returns an
// error to its caller — every validation failure collapses to valid=false
// with the model untouched, and is debug-logged instead.
package operationapplier

import (
	"encoding/json"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/api/protocol"
	"github.com/sidetree-node/core/pkg/document"
	"github.com/sidetree-node/core/pkg/encoding/hashing"
	"github.com/sidetree-node/core/pkg/versions/v1/doccomposer"
	"github.com/sidetree-node/core/pkg/versions/v1/model"
	"github.com/sidetree-node/core/pkg/versions/v1/operationparser"
)

var logger = log.New("sidetree-node/operationapplier")

// Applier is the v1 protocol version's OperationApplier.
type Applier struct{}

// New returns a v1 Applier.
func New() *Applier {
	return &Applier{}
}

var _ protocol.OperationApplier = (*Applier)(nil)

// Apply validates and, if valid, applies op against model, per the state
// table in spec §4.5. It never panics or returns an error: rejection is
// communicated solely through valid=false.
func (a *Applier) Apply(op *operation.AnchoredOperation, rm *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	parsed, err := operationparser.Parse(op.OperationBuffer)
	if err != nil {
		logger.Debugf("rejecting operation %s: parse failed: %s", op.UniqueSuffix, err)
		return rm, false
	}

	if parsed.Type != op.Type || parsed.UniqueSuffix != op.UniqueSuffix {
		logger.Debugf("rejecting operation %s: anchored metadata does not match parsed operation", op.UniqueSuffix)
		return rm, false
	}

	hasDocument := rm.Document != nil

	switch parsed.Type {
	case operation.TypeCreate:
		if hasDocument {
			logger.Debugf("rejecting create %s: document already exists", op.UniqueSuffix)
			return rm, false
		}

		return applyCreate(op, parsed, rm)
	case operation.TypeUpdate:
		if !hasDocument {
			logger.Debugf("rejecting update %s: no document", op.UniqueSuffix)
			return rm, false
		}

		return applyUpdate(op, parsed, rm)
	case operation.TypeRecover:
		if !hasDocument {
			logger.Debugf("rejecting recover %s: no document", op.UniqueSuffix)
			return rm, false
		}

		return applyRecover(op, parsed, rm)
	case operation.TypeRevoke:
		if !hasDocument {
			logger.Debugf("rejecting revoke %s: no document", op.UniqueSuffix)
			return rm, false
		}

		return applyRevoke(op, parsed, rm)
	default:
		logger.Debugf("rejecting operation %s: unknown type %s", op.UniqueSuffix, parsed.Type)
		return rm, false
	}
}

func applyCreate(op *operation.AnchoredOperation, parsed *model.Operation, rm *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	if !hashing.IsValidHash(parsed.EncodedSuffixData, parsed.UniqueSuffix) {
		logger.Debugf("rejecting create %s: suffix data does not hash to claimed unique suffix", op.UniqueSuffix)
		return rm, false
	}

	if !hashing.IsValidHash(parsed.EncodedOperationData, parsed.Create.SuffixData.OperationDataHash) {
		logger.Debugf("rejecting create %s: operation data hash mismatch", op.UniqueSuffix)
		return rm, false
	}

	var doc document.Document
	if err := decodeDocument(parsed.Create.OperationData.Document, &doc); err != nil {
		logger.Debugf("rejecting create %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	doc.ID = didID(parsed.UniqueSuffix)

	next := &protocol.ResolutionModel{
		Document: &doc,
		Metadata: &protocol.Metadata{
			RecoveryKey:         parsed.Create.SuffixData.RecoveryKey,
			NextRecoveryOtpHash: parsed.Create.SuffixData.NextRecoveryOtpHash,
			NextUpdateOtpHash:   parsed.Create.OperationData.NextUpdateOtpHash,
		},
		LastOperationTransactionNumber: op.TransactionNumber,
	}

	return next, true
}

func applyUpdate(op *operation.AnchoredOperation, parsed *model.Operation, rm *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	fields := parsed.Update

	if !hashing.IsValidHash(fields.UpdateOtp, rm.Metadata.NextUpdateOtpHash) {
		logger.Debugf("rejecting update %s: otp mismatch", op.UniqueSuffix)
		return rm, false
	}

	expectedHash, err := hashing.HashEncodedContent(parsed.EncodedOperationData)
	if err != nil {
		logger.Debugf("rejecting update %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	claimedHash, err := fields.SignedOperationDataHash.DecodedPayload()
	if err != nil {
		logger.Debugf("rejecting update %s: signed payload is not valid base64url", op.UniqueSuffix)
		return rm, false
	}

	if string(claimedHash) != expectedHash {
		logger.Debugf("rejecting update %s: signed operation data hash does not match", op.UniqueSuffix)
		return rm, false
	}

	kid, err := fields.SignedOperationDataHash.Kid()
	if err != nil {
		logger.Debugf("rejecting update %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	signingKey, ok := rm.Document.SigningKey(kid)
	if !ok {
		logger.Debugf("rejecting update %s: no signing key '%s'", op.UniqueSuffix, kid)
		return rm, false
	}

	pubKey, err := signingKey.PublicKeyJwk.ToECDSA()
	if err != nil {
		logger.Debugf("rejecting update %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	if err := fields.SignedOperationDataHash.Verify(pubKey); err != nil {
		logger.Debugf("rejecting update %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	newDoc, err := doccomposer.ApplyPatches(rm.Document, fields.OperationData.Patches)
	if err != nil {
		logger.Debugf("rejecting update %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	next := rm.Clone()
	next.Document = newDoc
	next.Metadata.NextUpdateOtpHash = fields.OperationData.NextUpdateOtpHash
	next.LastOperationTransactionNumber = op.TransactionNumber

	return next, true
}

func applyRecover(op *operation.AnchoredOperation, parsed *model.Operation, rm *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	fields := parsed.Recover

	if !hashing.IsValidHash(fields.RecoveryOtp, rm.Metadata.NextRecoveryOtpHash) {
		logger.Debugf("rejecting recover %s: otp mismatch", op.UniqueSuffix)
		return rm, false
	}

	pubKey, err := rm.Metadata.RecoveryKey.ToECDSA()
	if err != nil {
		logger.Debugf("rejecting recover %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	if err := fields.SignedOperationData.Verify(pubKey); err != nil {
		logger.Debugf("rejecting recover %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	if !hashing.IsValidHash(parsed.EncodedOperationData, fields.SignedData.OperationDataHash) {
		logger.Debugf("rejecting recover %s: operation data hash mismatch", op.UniqueSuffix)
		return rm, false
	}

	var doc document.Document
	if err := decodeDocument(fields.OperationData.Document, &doc); err != nil {
		logger.Debugf("rejecting recover %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	doc.ID = didID(op.UniqueSuffix)

	next := &protocol.ResolutionModel{
		Document: &doc,
		Metadata: &protocol.Metadata{
			RecoveryKey:         fields.SignedData.NewRecoveryKey,
			NextRecoveryOtpHash: fields.SignedData.NextRecoveryOtpHash,
			NextUpdateOtpHash:   fields.OperationData.NextUpdateOtpHash,
		},
		LastOperationTransactionNumber: op.TransactionNumber,
	}

	return next, true
}

func applyRevoke(op *operation.AnchoredOperation, parsed *model.Operation, rm *protocol.ResolutionModel) (*protocol.ResolutionModel, bool) {
	fields := parsed.Revoke

	if !hashing.IsValidHash(fields.RecoveryOtp, rm.Metadata.NextRecoveryOtpHash) {
		logger.Debugf("rejecting revoke %s: otp mismatch", op.UniqueSuffix)
		return rm, false
	}

	pubKey, err := rm.Metadata.RecoveryKey.ToECDSA()
	if err != nil {
		logger.Debugf("rejecting revoke %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	if err := fields.SignedData.Verify(pubKey); err != nil {
		logger.Debugf("rejecting revoke %s: %s", op.UniqueSuffix, err)
		return rm, false
	}

	next := rm.Clone()
	next.Metadata.RecoveryKey = nil
	next.Metadata.NextRecoveryOtpHash = ""
	next.Metadata.NextUpdateOtpHash = ""
	next.LastOperationTransactionNumber = op.TransactionNumber

	return next, true
}

// decodeDocument unmarshals a create/recover operation's embedded document
// payload. The document's id is not trusted from the wire; callers set it
// from the operation's own unique suffix via didID.
func decodeDocument(raw []byte, doc *document.Document) error {
	return json.Unmarshal(raw, doc)
}

// didID derives the external DID identifier from a unique suffix.
func didID(uniqueSuffix string) string {
	return "did:sidetree:" + uniqueSuffix
}
