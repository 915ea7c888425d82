/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package model defines the wire envelopes for the four operation request
// types (spec §3/§6). Every encoded sub-payload (suffixData, operationData,
// signed-data payloads) travels as base64url(UTF-8 JSON). The *Request
// structs are the outer envelopes; the other payload structs are the
// decoded shape of those encoded sub-payloads.
package model

import (
	"encoding/json"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/document/patch"
	"github.com/sidetree-node/core/pkg/internal/jwk"
	"github.com/sidetree-node/core/pkg/jws"
)

// CreateRequest is the top-level envelope for a Create operation. It has
// exactly three properties on the wire.
type CreateRequest struct {
	Type          operation.Type `json:"type"`
	SuffixData    string         `json:"suffixData"`
	OperationData string         `json:"operationData"`
}

// SuffixDataModel is the decoded contents of CreateRequest.SuffixData.
type SuffixDataModel struct {
	RecoveryKey         *jwk.JWK `json:"recoveryKey"`
	NextRecoveryOtpHash string   `json:"nextRecoveryOtpHash"`
	OperationDataHash   string   `json:"operationDataHash"`
}

// CreateOperationData is the decoded contents of CreateRequest.OperationData.
type CreateOperationData struct {
	Document          json.RawMessage `json:"document"`
	NextUpdateOtpHash string          `json:"nextUpdateOtpHash"`
}

// UpdateRequest is the top-level envelope for an Update operation. It has
// exactly five properties on the wire.
type UpdateRequest struct {
	Type                   operation.Type `json:"type"`
	DidUniqueSuffix        string         `json:"didUniqueSuffix"`
	UpdateOtp              string         `json:"updateOtp"`
	SignedOperationDataHash *jws.JWS      `json:"signedOperationDataHash"`
	OperationData          string         `json:"operationData"`
}

// UpdateOperationData is the decoded contents of UpdateRequest.OperationData.
type UpdateOperationData struct {
	Patches           []patch.Patch `json:"patches"`
	NextUpdateOtpHash string        `json:"nextUpdateOtpHash"`
}

// RecoverRequest is the top-level envelope for a Recover operation. It has
// exactly five properties on the wire.
type RecoverRequest struct {
	Type                operation.Type `json:"type"`
	DidUniqueSuffix     string         `json:"didUniqueSuffix"`
	RecoveryOtp         string         `json:"recoveryOtp"`
	SignedOperationData *jws.JWS       `json:"signedOperationData"`
	OperationData       string         `json:"operationData"`
}

// RecoverSignedDataModel is the decoded payload RecoverRequest's JWS signs.
type RecoverSignedDataModel struct {
	NewRecoveryKey      *jwk.JWK `json:"newRecoveryKey"`
	NextRecoveryOtpHash string   `json:"nextRecoveryOtpHash"`
	OperationDataHash   string   `json:"operationDataHash"`
}

// RecoverOperationData is the decoded contents of RecoverRequest.OperationData.
type RecoverOperationData struct {
	Document          json.RawMessage `json:"document"`
	NextUpdateOtpHash string          `json:"nextUpdateOtpHash"`
}

// RevokeRequest is the top-level envelope for a Revoke operation. It has
// exactly four properties on the wire.
type RevokeRequest struct {
	Type            operation.Type `json:"type"`
	DidUniqueSuffix string         `json:"didUniqueSuffix"`
	RecoveryOtp     string         `json:"recoveryOtp"`
	SignedData      *jws.JWS       `json:"signedData"`
}

// RevokeSignedDataModel is the decoded payload RevokeRequest's JWS signs.
type RevokeSignedDataModel struct {
	DidUniqueSuffix string `json:"didUniqueSuffix"`
	RecoveryOtp     string `json:"recoveryOtp"`
}

// Operation is the parser's output: an immutable typed value plus the
// original operation buffer, so any hash over the request is reproducible
// byte for byte (spec §3).
type Operation struct {
	Type             operation.Type
	UniqueSuffix     string
	OperationBuffer  []byte
	EncodedSuffixData    string
	EncodedOperationData string

	Create  *CreateFields
	Update  *UpdateFields
	Recover *RecoverFields
	Revoke  *RevokeFields
}

// CreateFields holds the parsed fields specific to a Create operation.
type CreateFields struct {
	SuffixData    *SuffixDataModel
	OperationData *CreateOperationData
}

// UpdateFields holds the parsed fields specific to an Update operation.
type UpdateFields struct {
	UpdateOtp               string
	SignedOperationDataHash *jws.JWS
	OperationData           *UpdateOperationData
}

// RecoverFields holds the parsed fields specific to a Recover operation.
type RecoverFields struct {
	RecoveryOtp         string
	SignedOperationData *jws.JWS
	SignedData          *RecoverSignedDataModel
	OperationData       *RecoverOperationData
}

// RevokeFields holds the parsed fields specific to a Revoke operation.
type RevokeFields struct {
	RecoveryOtp string
	SignedData  *jws.JWS
	SignedModel *RevokeSignedDataModel
}
