/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operationapplier

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"testing"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcd/btcec"

	"github.com/sidetree-node/core/pkg/api/operation"
	"github.com/sidetree-node/core/pkg/api/protocol"
	"github.com/sidetree-node/core/pkg/encoding"
	"github.com/sidetree-node/core/pkg/encoding/hashing"
	"github.com/sidetree-node/core/pkg/internal/jwk"
	"github.com/sidetree-node/core/pkg/jws"
)

func encodeValue(t *testing.T, v interface{}) string {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return encoding.EncodeToString(b)
}

func sha256Sum(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func genKey(t *testing.T, kid string) (*ecdsa.PrivateKey, *jwk.JWK) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	require.NoError(t, err)

	key := &jwk.JWK{
		JSONWebKey: jose.JSONWebKey{Key: &priv.PublicKey, KeyID: kid},
		Kty:        "EC",
		Crv:        "secp256k1",
	}

	return priv, key
}

func signJWS(t *testing.T, priv *ecdsa.PrivateKey, kid string, payload []byte) *jws.JWS {
	t.Helper()

	protectedHeader, err := json.Marshal(map[string]string{"kid": kid, "alg": "ES256K"})
	require.NoError(t, err)

	protected := encoding.EncodeToString(protectedHeader)
	encodedPayload := encoding.EncodeToString(payload)

	signingInput := protected + "." + encodedPayload
	digest := sha256Sum(signingInput)

	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)

	return &jws.JWS{Protected: protected, Payload: encodedPayload, Signature: encoding.EncodeToString(sig)}
}

func TestOperationLifecycle(t *testing.T) {
	recoveryPriv, recoveryPub := genKey(t, "#recovery")
	signingPriv, signingPub := genKey(t, "#signing")

	updateOtp1 := "update-otp-one"
	recoveryOtp1 := "recovery-otp-one"

	nextUpdateOtpHash1, err := hashing.HashEncodedContent(updateOtp1)
	require.NoError(t, err)

	nextRecoveryOtpHash1, err := hashing.HashEncodedContent(recoveryOtp1)
	require.NoError(t, err)

	createDoc := map[string]interface{}{
		"publicKey": []map[string]interface{}{
			{"id": "#signing", "usage": "signing", "publicKeyJwk": signingPub},
		},
	}
	createDocBytes, err := json.Marshal(createDoc)
	require.NoError(t, err)

	createOpData := map[string]interface{}{
		"document":          json.RawMessage(createDocBytes),
		"nextUpdateOtpHash": nextUpdateOtpHash1,
	}
	encodedCreateOpData := encodeValue(t, createOpData)

	createOpDataHash, err := hashing.HashEncodedContent(encodedCreateOpData)
	require.NoError(t, err)

	suffixData := map[string]interface{}{
		"recoveryKey":         recoveryPub,
		"nextRecoveryOtpHash": nextRecoveryOtpHash1,
		"operationDataHash":   createOpDataHash,
	}
	encodedSuffixData := encodeValue(t, suffixData)

	uniqueSuffix, err := hashing.HashEncodedContent(encodedSuffixData)
	require.NoError(t, err)

	createBuf, err := json.Marshal(map[string]interface{}{
		"type":          "create",
		"suffixData":    encodedSuffixData,
		"operationData": encodedCreateOpData,
	})
	require.NoError(t, err)

	applier := New()
	rm := &protocol.ResolutionModel{}

	createOp := &operation.AnchoredOperation{Type: operation.TypeCreate, UniqueSuffix: uniqueSuffix, OperationBuffer: createBuf, TransactionNumber: 1}

	rm, valid := applier.Apply(createOp, rm)
	require.True(t, valid)
	require.Equal(t, "did:sidetree:"+uniqueSuffix, rm.Document.ID)
	require.Equal(t, nextUpdateOtpHash1, rm.Metadata.NextUpdateOtpHash)

	// duplicate create is rejected, state untouched
	rm2, valid := applier.Apply(createOp, rm)
	require.False(t, valid)
	require.Same(t, rm, rm2)

	// --- Update ---
	updateOpData := map[string]interface{}{
		"patches":           []interface{}{},
		"nextUpdateOtpHash": "irrelevant-for-this-test",
	}
	encodedUpdateOpData := encodeValue(t, updateOpData)

	expectedOpDataHash, err := hashing.HashEncodedContent(encodedUpdateOpData)
	require.NoError(t, err)

	signedHashJWS := signJWS(t, signingPriv, "#signing", []byte(expectedOpDataHash))

	updateBuf, err := json.Marshal(map[string]interface{}{
		"type":                    "update",
		"didUniqueSuffix":         uniqueSuffix,
		"updateOtp":               updateOtp1,
		"signedOperationDataHash": signedHashJWS,
		"operationData":           encodedUpdateOpData,
	})
	require.NoError(t, err)

	updateOp := &operation.AnchoredOperation{Type: operation.TypeUpdate, UniqueSuffix: uniqueSuffix, OperationBuffer: updateBuf, TransactionNumber: 2}

	rmAfterUpdate, valid := applier.Apply(updateOp, rm)
	require.True(t, valid)
	require.Equal(t, "irrelevant-for-this-test", rmAfterUpdate.Metadata.NextUpdateOtpHash)

	// replay of the same update is rejected: otp already consumed
	rmReplay, valid := applier.Apply(updateOp, rmAfterUpdate)
	require.False(t, valid)
	require.Same(t, rmAfterUpdate, rmReplay)

	// --- Recover ---
	newRecoveryPriv, newRecoveryPub := genKey(t, "#recovery-2")

	recoverDoc := map[string]interface{}{"publicKey": []map[string]interface{}{}}
	recoverDocBytes, err := json.Marshal(recoverDoc)
	require.NoError(t, err)

	recoverOpData := map[string]interface{}{
		"document":          json.RawMessage(recoverDocBytes),
		"nextUpdateOtpHash": nextUpdateOtpHash1,
	}
	encodedRecoverOpData := encodeValue(t, recoverOpData)

	recoverOpDataHash, err := hashing.HashEncodedContent(encodedRecoverOpData)
	require.NoError(t, err)

	signedRecoverPayload := map[string]interface{}{
		"newRecoveryKey":      newRecoveryPub,
		"nextRecoveryOtpHash": nextRecoveryOtpHash1,
		"operationDataHash":   recoverOpDataHash,
	}
	signedRecoverPayloadBytes, err := json.Marshal(signedRecoverPayload)
	require.NoError(t, err)

	signedOperationData := signJWS(t, recoveryPriv, "#recovery", signedRecoverPayloadBytes)

	recoverBuf, err := json.Marshal(map[string]interface{}{
		"type":                "recover",
		"didUniqueSuffix":     uniqueSuffix,
		"recoveryOtp":         recoveryOtp1,
		"signedOperationData": signedOperationData,
		"operationData":       encodedRecoverOpData,
	})
	require.NoError(t, err)

	recoverOp := &operation.AnchoredOperation{Type: operation.TypeRecover, UniqueSuffix: uniqueSuffix, OperationBuffer: recoverBuf, TransactionNumber: 3}

	rmAfterRecover, valid := applier.Apply(recoverOp, rmAfterUpdate)
	require.True(t, valid)
	require.Equal(t, nextRecoveryOtpHash1, rmAfterRecover.Metadata.NextRecoveryOtpHash)

	// --- Revoke ---
	signedRevokePayload := map[string]interface{}{
		"didUniqueSuffix": uniqueSuffix,
		"recoveryOtp":     recoveryOtp1,
	}
	signedRevokePayloadBytes, err := json.Marshal(signedRevokePayload)
	require.NoError(t, err)

	signedRevokeJWS := signJWS(t, newRecoveryPriv, "#recovery-2", signedRevokePayloadBytes)

	revokeBuf, err := json.Marshal(map[string]interface{}{
		"type":            "revoke",
		"didUniqueSuffix": uniqueSuffix,
		"recoveryOtp":     recoveryOtp1,
		"signedData":      signedRevokeJWS,
	})
	require.NoError(t, err)

	revokeOp := &operation.AnchoredOperation{Type: operation.TypeRevoke, UniqueSuffix: uniqueSuffix, OperationBuffer: revokeBuf, TransactionNumber: 4}

	rmAfterRevoke, valid := applier.Apply(revokeOp, rmAfterRecover)
	require.True(t, valid)
	require.Nil(t, rmAfterRevoke.Metadata.RecoveryKey)
	require.Empty(t, rmAfterRevoke.Metadata.NextRecoveryOtpHash)
	require.Empty(t, rmAfterRevoke.Metadata.NextUpdateOtpHash)
	require.NotNil(t, rmAfterRevoke.Document) // document preserved

	// a further update, even with a correct-looking prior otp, is now rejected
	furtherUpdateBuf, err := json.Marshal(map[string]interface{}{
		"type":                    "update",
		"didUniqueSuffix":         uniqueSuffix,
		"updateOtp":               "irrelevant-for-this-test",
		"signedOperationDataHash": signedHashJWS,
		"operationData":           encodedUpdateOpData,
	})
	require.NoError(t, err)

	furtherUpdateOp := &operation.AnchoredOperation{Type: operation.TypeUpdate, UniqueSuffix: uniqueSuffix, OperationBuffer: furtherUpdateBuf, TransactionNumber: 5}

	_, valid = applier.Apply(furtherUpdateOp, rmAfterRevoke)
	require.False(t, valid)
}

func TestApply_CreateOnExistingDocumentRejected(t *testing.T) {
	applier := New()
	rm := &protocol.ResolutionModel{Document: nil}

	_, recoveryPub := genKey(t, "#recovery")

	opData := map[string]interface{}{"document": json.RawMessage(`{}`), "nextUpdateOtpHash": "x"}
	encodedOpData := encodeValue(t, opData)

	opDataHash, err := hashing.HashEncodedContent(encodedOpData)
	require.NoError(t, err)

	suffixData := map[string]interface{}{"recoveryKey": recoveryPub, "nextRecoveryOtpHash": "y", "operationDataHash": opDataHash}
	encodedSuffixData := encodeValue(t, suffixData)

	uniqueSuffix, err := hashing.HashEncodedContent(encodedSuffixData)
	require.NoError(t, err)

	buf, err := json.Marshal(map[string]interface{}{"type": "create", "suffixData": encodedSuffixData, "operationData": encodedOpData})
	require.NoError(t, err)

	op := &operation.AnchoredOperation{Type: operation.TypeCreate, UniqueSuffix: uniqueSuffix, OperationBuffer: buf}

	out, valid := applier.Apply(op, rm)
	require.True(t, valid)
	require.NotNil(t, out.Document)

	out2, valid := applier.Apply(op, out)
	require.False(t, valid)
	require.Same(t, out, out2)
}

func TestApply_UpdateWithNoDocumentRejected(t *testing.T) {
	applier := New()
	rm := &protocol.ResolutionModel{}

	// operationData is well-formed, so the operation parses and is rejected
	// only because the model has no document yet.
	encodedOpData := encodeValue(t, map[string]interface{}{"patches": []interface{}{}, "nextUpdateOtpHash": "n"})

	buf, err := json.Marshal(map[string]interface{}{
		"type":                    "update",
		"didUniqueSuffix":         "x",
		"updateOtp":               "y",
		"signedOperationDataHash": map[string]string{"protected": "a", "payload": "b", "signature": "c"},
		"operationData":           encodedOpData,
	})
	require.NoError(t, err)

	op := &operation.AnchoredOperation{Type: operation.TypeUpdate, UniqueSuffix: "x", OperationBuffer: buf}

	out, valid := applier.Apply(op, rm)
	require.False(t, valid)
	require.Same(t, rm, out)
}
