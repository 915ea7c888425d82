/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operationparser implements C3: pure, stateless decoding and
// schema validation of the four operation request types. Parsers never
// consult DID state — that happens later, in operationapplier (C5).
package operationparser

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/encoding"
	"github.com/sidetree-node/core/pkg/encoding/hashing"
	"github.com/sidetree-node/core/pkg/versions/v1/model"
)

// maxOtpLength is the maximum base64url length of an updateOtp/recoveryOtp
// (spec §4.3, §8 boundary behavior: 50 accepted, 51 rejected).
const maxOtpLength = 50

// Sentinel parse-error categories (spec §7).
var (
	ErrMissingOrUnknownProperty      = errors.New("missing or unknown property")
	ErrTypeIncorrect                 = errors.New("type incorrect")
	ErrOtpTooLong                    = errors.New("otp exceeds maximum length")
	ErrSignedDidUniqueSuffixMismatch = errors.New("signed did unique suffix does not match")
	ErrSignedRecoveryOtpMismatch     = errors.New("signed recovery otp does not match")
)

var expectedProperties = map[operation.Type][]string{
	operation.TypeCreate:  {"type", "suffixData", "operationData"},
	operation.TypeUpdate:  {"type", "didUniqueSuffix", "updateOtp", "signedOperationDataHash", "operationData"},
	operation.TypeRecover: {"type", "didUniqueSuffix", "recoveryOtp", "signedOperationData", "operationData"},
	operation.TypeRevoke:  {"type", "didUniqueSuffix", "recoveryOtp", "signedData"},
}

// Parse decodes and schema-checks a raw operation request buffer,
// dispatching on its declared "type", and returns an immutable parsed
// operation plus the original buffer.
func Parse(buffer []byte) (*model.Operation, error) {
	var envelope struct {
		Type operation.Type `json:"type"`
	}

	if err := json.Unmarshal(buffer, &envelope); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	switch envelope.Type {
	case operation.TypeCreate:
		return ParseCreate(buffer)
	case operation.TypeUpdate:
		return ParseUpdate(buffer)
	case operation.TypeRecover:
		return ParseRecover(buffer)
	case operation.TypeRevoke:
		return ParseRevoke(buffer)
	default:
		return nil, errors.Wrapf(ErrTypeIncorrect, "unknown operation type '%s'", envelope.Type)
	}
}

// ParseCreate parses and validates a Create request.
func ParseCreate(buffer []byte) (*model.Operation, error) {
	if err := checkProperties(buffer, operation.TypeCreate); err != nil {
		return nil, err
	}

	var req model.CreateRequest
	if err := json.Unmarshal(buffer, &req); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	suffixDataBytes, err := encoding.DecodeString(req.SuffixData)
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "suffixData is not valid base64url")
	}

	var suffixData model.SuffixDataModel
	if err := json.Unmarshal(suffixDataBytes, &suffixData); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "suffixData is not valid JSON")
	}

	opDataBytes, err := encoding.DecodeString(req.OperationData)
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid base64url")
	}

	var opData model.CreateOperationData
	if err := json.Unmarshal(opDataBytes, &opData); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid JSON")
	}

	// didUniqueSuffix is derived, never supplied on the wire (spec §4.3).
	uniqueSuffix, err := hashing.HashEncodedContent(req.SuffixData)
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "failed to derive unique suffix")
	}

	return &model.Operation{
		Type:                 operation.TypeCreate,
		UniqueSuffix:         uniqueSuffix,
		OperationBuffer:      buffer,
		EncodedSuffixData:    req.SuffixData,
		EncodedOperationData: req.OperationData,
		Create: &model.CreateFields{
			SuffixData:    &suffixData,
			OperationData: &opData,
		},
	}, nil
}

// ParseUpdate parses and validates an Update request.
func ParseUpdate(buffer []byte) (*model.Operation, error) {
	if err := checkProperties(buffer, operation.TypeUpdate); err != nil {
		return nil, err
	}

	var req model.UpdateRequest
	if err := json.Unmarshal(buffer, &req); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	if err := checkOtpLength(req.UpdateOtp); err != nil {
		return nil, err
	}

	opDataBytes, err := encoding.DecodeString(req.OperationData)
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid base64url")
	}

	var opData model.UpdateOperationData
	if err := json.Unmarshal(opDataBytes, &opData); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid JSON")
	}

	return &model.Operation{
		Type:                 operation.TypeUpdate,
		UniqueSuffix:         req.DidUniqueSuffix,
		OperationBuffer:      buffer,
		EncodedOperationData: req.OperationData,
		Update: &model.UpdateFields{
			UpdateOtp:               req.UpdateOtp,
			SignedOperationDataHash: req.SignedOperationDataHash,
			OperationData:           &opData,
		},
	}, nil
}

// ParseRecover parses and validates a Recover request.
func ParseRecover(buffer []byte) (*model.Operation, error) {
	if err := checkProperties(buffer, operation.TypeRecover); err != nil {
		return nil, err
	}

	var req model.RecoverRequest
	if err := json.Unmarshal(buffer, &req); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	if err := checkOtpLength(req.RecoveryOtp); err != nil {
		return nil, err
	}

	if req.SignedOperationData == nil {
		return nil, errors.Wrap(ErrMissingOrUnknownProperty, "signedOperationData")
	}

	signedPayload, err := req.SignedOperationData.DecodedPayload()
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "signedOperationData payload is not valid base64url")
	}

	var signedData model.RecoverSignedDataModel
	if err := json.Unmarshal(signedPayload, &signedData); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "signedOperationData payload is not valid JSON")
	}

	opDataBytes, err := encoding.DecodeString(req.OperationData)
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid base64url")
	}

	var opData model.RecoverOperationData
	if err := json.Unmarshal(opDataBytes, &opData); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "operationData is not valid JSON")
	}

	return &model.Operation{
		Type:                 operation.TypeRecover,
		UniqueSuffix:         req.DidUniqueSuffix,
		OperationBuffer:      buffer,
		EncodedOperationData: req.OperationData,
		Recover: &model.RecoverFields{
			RecoveryOtp:         req.RecoveryOtp,
			SignedOperationData: req.SignedOperationData,
			SignedData:          &signedData,
			OperationData:       &opData,
		},
	}, nil
}

// ParseRevoke parses and validates a Revoke request. The signed payload
// must embed a didUniqueSuffix and recoveryOtp equal to the outer fields
// (spec §4.3); this is the one cross-field check a parser performs, since
// it is purely syntactic and does not touch DID state.
func ParseRevoke(buffer []byte) (*model.Operation, error) {
	if err := checkProperties(buffer, operation.TypeRevoke); err != nil {
		return nil, err
	}

	var req model.RevokeRequest
	if err := json.Unmarshal(buffer, &req); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	if err := checkOtpLength(req.RecoveryOtp); err != nil {
		return nil, err
	}

	if req.SignedData == nil {
		return nil, errors.Wrap(ErrMissingOrUnknownProperty, "signedData")
	}

	signedPayload, err := req.SignedData.DecodedPayload()
	if err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "signedData payload is not valid base64url")
	}

	var signedModel model.RevokeSignedDataModel
	if err := json.Unmarshal(signedPayload, &signedModel); err != nil {
		return nil, errors.Wrap(ErrTypeIncorrect, "signedData payload is not valid JSON")
	}

	if signedModel.DidUniqueSuffix != req.DidUniqueSuffix {
		return nil, ErrSignedDidUniqueSuffixMismatch
	}

	if signedModel.RecoveryOtp != req.RecoveryOtp {
		return nil, ErrSignedRecoveryOtpMismatch
	}

	return &model.Operation{
		Type:            operation.TypeRevoke,
		UniqueSuffix:    req.DidUniqueSuffix,
		OperationBuffer: buffer,
		Revoke: &model.RevokeFields{
			RecoveryOtp: req.RecoveryOtp,
			SignedData:  req.SignedData,
			SignedModel: &signedModel,
		},
	}, nil
}

// checkProperties rejects a request whose top-level property set differs
// from the schema for typ (spec §4.3/§6/§8: Revoke must have exactly 4).
func checkProperties(buffer []byte, typ operation.Type) error {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(buffer, &raw); err != nil {
		return errors.Wrap(ErrTypeIncorrect, err.Error())
	}

	expected := expectedProperties[typ]

	if len(raw) != len(expected) {
		return errors.Wrapf(ErrMissingOrUnknownProperty, "expected %d properties for '%s', got %d", len(expected), typ, len(raw))
	}

	for _, name := range expected {
		if _, ok := raw[name]; !ok {
			return errors.Wrapf(ErrMissingOrUnknownProperty, "missing property '%s'", name)
		}
	}

	return nil
}

// checkOtpLength rejects an OTP string whose base64url length exceeds 50.
func checkOtpLength(otp string) error {
	if len(otp) > maxOtpLength {
		return errors.Wrapf(ErrOtpTooLong, "otp length %d exceeds maximum %d", len(otp), maxOtpLength)
	}

	return nil
}
