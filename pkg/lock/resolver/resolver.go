/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resolver implements the lock resolver (C7): given a lock
// identifier, validate the named on-chain output as a well-formed
// value-time-lock (spec §4.6–4.7, §6).
package resolver

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/lock/identifier"
	"github.com/sidetree-node/core/pkg/lock/models"
)

// ErrTransactionNotFound is the recognized recovery signal distinguished
// from a malformed-script error (spec §4.6, §7): the lock monitor
// rebroadcasts on this error instead of aborting the tick.
var ErrTransactionNotFound = errors.New("lock resolver: transaction not found")

// ErrMalformedScript signals a redeem script that is not the canonical
// value-time-lock form.
var ErrMalformedScript = errors.New("lock resolver: malformed redeem script")

// TransactionFetcher retrieves a previously broadcast transaction by id.
// LockResolverTransactionNotFound is signaled by ErrTransactionNotFound.
type TransactionFetcher interface {
	GetRawTransaction(txid string) (*wire.MsgTx, error)
}

// Resolver is the v1 lock resolver.
type Resolver struct {
	fetcher TransactionFetcher
	params  *chaincfg.Params
}

// New returns a Resolver that fetches transactions through fetcher, using
// params for P2SH address derivation.
func New(fetcher TransactionFetcher, params *chaincfg.Params) *Resolver {
	return &Resolver{fetcher: fetcher, params: params}
}

// Resolve decodes a lock identifier, locates the named transaction's
// matching P2SH output, and returns the value-time-lock it represents.
func (r *Resolver) Resolve(serializedIdentifier string) (*models.ValueTimeLock, error) {
	id, err := identifier.Deserialize(serializedIdentifier)
	if err != nil {
		return nil, err
	}

	lockUntilBlock, pubKeyHash, err := parseCanonicalScript(id.RedeemScriptAsHex)
	if err != nil {
		return nil, err
	}

	redeemScript, err := hex.DecodeString(id.RedeemScriptAsHex)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedScript, "redeem script is not valid hex")
	}

	p2shAddr, err := btcutil.NewAddressScriptHash(redeemScript, r.params)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedScript, "failed to derive P2SH address")
	}

	p2shScript, err := txscript.PayToAddrScript(p2shAddr)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedScript, "failed to build P2SH script")
	}

	tx, err := r.fetcher.GetRawTransaction(id.TransactionID)
	if err != nil {
		return nil, errors.Wrap(ErrTransactionNotFound, err.Error())
	}

	for _, out := range tx.TxOut {
		if bytesEqual(out.PkScript, p2shScript) {
			return &models.ValueTimeLock{
				Identifier:            serializedIdentifier,
				AmountLocked:          out.Value,
				UnlockTransactionTime: lockUntilBlock,
				Owner:                 hex.EncodeToString(pubKeyHash),
			}, nil
		}
	}

	return nil, errors.Wrap(ErrTransactionNotFound, "no output pays the redeem script's P2SH address")
}

// parseCanonicalScript extracts (lockUntilBlock, pubKeyHash) from the
// canonical value-time-lock redeem script:
// <lockUntilBlock> OP_CHECKLOCKTIMEVERIFY OP_DROP <pubKeyHash> OP_CHECKSIG
func parseCanonicalScript(redeemScriptAsHex string) (uint32, []byte, error) {
	raw, err := hex.DecodeString(redeemScriptAsHex)
	if err != nil {
		return 0, nil, errors.Wrap(ErrMalformedScript, "redeem script is not valid hex")
	}

	tokenizer := txscript.MakeScriptTokenizer(0, raw)

	if !tokenizer.Next() {
		return 0, nil, errors.Wrap(ErrMalformedScript, "empty script")
	}

	lockUntilBlock, err := scriptNumToUint32(tokenizer.Data())
	if err != nil {
		return 0, nil, err
	}

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKLOCKTIMEVERIFY {
		return 0, nil, errors.Wrap(ErrMalformedScript, "expected OP_CHECKLOCKTIMEVERIFY")
	}

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_DROP {
		return 0, nil, errors.Wrap(ErrMalformedScript, "expected OP_DROP")
	}

	if !tokenizer.Next() {
		return 0, nil, errors.Wrap(ErrMalformedScript, "expected pubKeyHash push")
	}

	pubKeyHash := tokenizer.Data()

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKSIG {
		return 0, nil, errors.Wrap(ErrMalformedScript, "expected OP_CHECKSIG")
	}

	if tokenizer.Next() || tokenizer.Err() != nil {
		return 0, nil, errors.Wrap(ErrMalformedScript, "unexpected trailing script data")
	}

	return lockUntilBlock, pubKeyHash, nil
}

func scriptNumToUint32(data []byte) (uint32, error) {
	num, err := txscript.MakeScriptNum(data, true, 5)
	if err != nil {
		return 0, errors.Wrap(ErrMalformedScript, "lockUntilBlock is not a valid script number")
	}

	if num < 0 {
		return 0, errors.Wrap(ErrMalformedScript, "lockUntilBlock must be non-negative")
	}

	return uint32(num), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// BuildRedeemScript constructs the canonical value-time-lock redeem script
// for lockUntilBlock and pubKeyHash (spec §6), as hex.
func BuildRedeemScript(lockUntilBlock uint32, pubKeyHash []byte) (string, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(lockUntilBlock))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(pubKeyHash)
	builder.AddOp(txscript.OP_CHECKSIG)

	script, err := builder.Script()
	if err != nil {
		return "", errors.Wrap(ErrMalformedScript, err.Error())
	}

	return hex.EncodeToString(script), nil
}

// P2SHAddress derives the P2SH address for a redeem script.
func P2SHAddress(redeemScript []byte, params *chaincfg.Params) (*btcutil.AddressScriptHash, error) {
	return btcutil.NewAddressScriptHash(redeemScript, params)
}
