/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package monitor implements the lock monitor (C8): a single-agent control
// loop that maintains exactly one active value-time-lock sized to a
// configured amount and period (spec §4.8).
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/lock/client"
	"github.com/sidetree-node/core/pkg/lock/identifier"
	"github.com/sidetree-node/core/pkg/lock/models"
	"github.com/sidetree-node/core/pkg/lock/resolver"
	"github.com/sidetree-node/core/pkg/lock/store"
)

var logger = log.New("sidetree-node/lock/monitor")

// Outcome names what a tick actually did, including the two expected
// control-flow signals the spec calls out as fallbacks rather than failures.
type Outcome string

const (
	OutcomeNoOp                           = Outcome("NoOp")
	OutcomeWaiting                        = Outcome("Waiting")
	OutcomeCreated                        = Outcome("Created")
	OutcomeRelocked                       = Outcome("Relocked")
	OutcomeReleased                       = Outcome("Released")
	OutcomeRebroadcast                    = Outcome("Rebroadcast")
	OutcomeInsufficientFundsForFirstLock  = Outcome("InsufficientFundsForFirstLock")
	OutcomeInsufficientFundsFallbackToRelease = Outcome("InsufficientFundsFallbackToRelease")
)

// Config is the monitor's tunable parameters (spec §4.8).
type Config struct {
	DesiredLockAmountInSatoshis  int64
	LockPeriodInBlocks           uint32
	FirstLockFeeAmountInSatoshis int64
	PollPeriodInSeconds          int
}

func (c Config) lockRequired() bool {
	return c.DesiredLockAmountInSatoshis > 0
}

// Monitor is the v1 lock monitor.
type Monitor struct {
	tickMutex sync.Mutex

	client   client.BitcoinClient
	resolver *resolver.Resolver
	store    store.Store
	config   Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Monitor driving client/resolver/store under config.
func New(c client.BitcoinClient, r *resolver.Resolver, s store.Store, config Config) *Monitor {
	return &Monitor{client: c, resolver: r, store: s, config: config}
}

// Start begins the self-rescheduling poll loop. A running loop is stopped
// before a new one starts, so repeated Start calls never overlap ticks.
func (m *Monitor) Start() {
	m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		for {
			m.Tick()

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(m.config.PollPeriodInSeconds) * time.Second):
			}
		}
	}()
}

// Stop cancels any in-flight schedule and waits for the current tick, if
// any, to finish.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.wg.Wait()
		m.cancel = nil
	}
}

// Tick runs exactly one reconcile-decide cycle. Exactly one tick executes at
// a time even under concurrent callers.
func (m *Monitor) Tick() Outcome {
	m.tickMutex.Lock()
	defer m.tickMutex.Unlock()

	span, _ := opentracing.StartSpanFromContext(context.Background(), "monitor.Tick")
	defer span.Finish()

	outcome, err := m.tick()
	if err != nil {
		logger.Errorf("lock monitor tick abandoned: %s", err)
		return OutcomeNoOp
	}

	return outcome
}

func (m *Monitor) tick() (Outcome, error) {
	last, err := m.store.GetLastLock()
	if err != nil {
		return "", errors.Wrap(err, "failed to read last lock record")
	}

	hasActiveLock, activeLock, rebroadcasted, err := m.reconcile(last)
	if err != nil {
		return "", err
	}

	// A rebroadcast this tick means recovery from a crash between a prior
	// store write and its broadcast; the stored record already represents
	// the in-flight lock, so decide does not run again until a later tick
	// observes it confirmed or still missing.
	if rebroadcasted {
		return OutcomeRebroadcast, nil
	}

	return m.decide(last, hasActiveLock, activeLock)
}

// reconcile implements spec §4.8 step 1.
func (m *Monitor) reconcile(last *models.TransactionRecord) (hasActiveLock bool, activeLock *models.ValueTimeLock, rebroadcasted bool, err error) {
	if last == nil {
		return false, nil, false, nil
	}

	if last.Type == models.RecordTypeReturnToWallet {
		if _, err := m.client.GetRawTransaction(last.TransactionID); err != nil {
			if err := m.rebroadcast(last); err != nil {
				return false, nil, false, err
			}

			return false, nil, true, nil
		}

		return false, nil, false, nil
	}

	id := identifier.Serialize(identifier.LockIdentifier{
		TransactionID:     last.TransactionID,
		RedeemScriptAsHex: last.RedeemScriptAsHex,
	})

	lock, resolveErr := m.resolver.Resolve(id)
	if resolveErr == nil {
		return true, lock, false, nil
	}

	if errors.Is(resolveErr, resolver.ErrTransactionNotFound) {
		if err := m.rebroadcast(last); err != nil {
			return false, nil, false, err
		}

		return false, nil, true, nil
	}

	return false, nil, false, errors.Wrap(resolveErr, "lock resolver failed")
}

// rebroadcast resubmits a previously stored raw transaction. Rebroadcast is
// idempotent: bitcoin rejects a double-spend against an already-mined
// transaction, so "already on-chain" and "now on-chain" both converge to the
// transaction being confirmed.
func (m *Monitor) rebroadcast(last *models.TransactionRecord) error {
	err := m.client.BroadcastLockTransaction(&models.BitcoinLockTransactionModel{
		TransactionID:               last.TransactionID,
		RedeemScriptAsHex:           last.RedeemScriptAsHex,
		SerializedTransactionObject: last.RawTransaction,
	})
	if err == nil {
		return nil
	}

	var broadcastErr *client.BroadcastError
	if errors.As(err, &broadcastErr) && broadcastErr.AlreadyOnChain {
		return nil
	}

	return errors.Wrap(err, "rebroadcast failed")
}

// decide implements spec §4.8 step 2.
func (m *Monitor) decide(last *models.TransactionRecord, hasActiveLock bool, activeLock *models.ValueTimeLock) (Outcome, error) {
	lockRequired := m.config.lockRequired()

	switch {
	case lockRequired && !hasActiveLock:
		return m.createFirstLock()
	case lockRequired && hasActiveLock:
		return m.maintainLock(last, activeLock)
	case !lockRequired && hasActiveLock:
		return m.release(last.TransactionID, last.DesiredLockAmountInSatoshis)
	default:
		return OutcomeNoOp, nil
	}
}

func (m *Monitor) createFirstLock() (Outcome, error) {
	balance, err := m.client.GetBalanceInSatoshis()
	if err != nil {
		return "", errors.Wrap(err, "failed to read wallet balance")
	}

	if balance <= m.config.DesiredLockAmountInSatoshis+m.config.FirstLockFeeAmountInSatoshis {
		logger.Debugf("insufficient balance for first lock: have %d, need > %d", balance,
			m.config.DesiredLockAmountInSatoshis+m.config.FirstLockFeeAmountInSatoshis)

		return OutcomeInsufficientFundsForFirstLock, nil
	}

	currentHeight, err := m.client.GetCurrentBlockHeight()
	if err != nil {
		return "", errors.Wrap(err, "failed to read current block height")
	}

	tx, err := m.client.CreateLockTransaction(m.config.DesiredLockAmountInSatoshis, currentHeight+m.config.LockPeriodInBlocks)
	if err != nil {
		return "", errors.Wrap(err, "failed to create lock transaction")
	}

	return m.persistAndBroadcast(tx, models.RecordTypeCreate, m.config.DesiredLockAmountInSatoshis)
}

func (m *Monitor) maintainLock(last *models.TransactionRecord, activeLock *models.ValueTimeLock) (Outcome, error) {
	currentHeight, err := m.client.GetCurrentBlockHeight()
	if err != nil {
		return "", errors.Wrap(err, "failed to read current block height")
	}

	if activeLock.UnlockTransactionTime > currentHeight+1 {
		return OutcomeWaiting, nil
	}

	if last.DesiredLockAmountInSatoshis != m.config.DesiredLockAmountInSatoshis {
		return m.release(last.TransactionID, activeLock.AmountLocked)
	}

	tx, err := m.client.CreateRelockTransaction(last.TransactionID, activeLock.UnlockTransactionTime,
		currentHeight+m.config.LockPeriodInBlocks)
	if err != nil {
		return "", errors.Wrap(err, "failed to create relock transaction")
	}

	// The relock fee is ordinarily paid from other wallet inputs, leaving
	// the locked value untouched. Only when the wallet cannot cover it does
	// the fee come out of the bonded value itself.
	balance, err := m.client.GetBalanceInSatoshis()
	if err != nil {
		return "", errors.Wrap(err, "failed to read wallet balance")
	}

	newLockedAmount := activeLock.AmountLocked
	if balance < tx.TransactionFee {
		newLockedAmount -= tx.TransactionFee
	}

	if newLockedAmount < m.config.DesiredLockAmountInSatoshis {
		logger.Debugf("relock would drop locked amount to %d, below target %d: falling back to release",
			newLockedAmount, m.config.DesiredLockAmountInSatoshis)

		if _, err := m.release(last.TransactionID, activeLock.AmountLocked); err != nil {
			return "", err
		}

		return OutcomeInsufficientFundsFallbackToRelease, nil
	}

	return m.persistAndBroadcast(tx, models.RecordTypeRelock, m.config.DesiredLockAmountInSatoshis)
}

func (m *Monitor) release(prevTxid string, prevAmount int64) (Outcome, error) {
	currentHeight, err := m.client.GetCurrentBlockHeight()
	if err != nil {
		return "", errors.Wrap(err, "failed to read current block height")
	}

	tx, err := m.client.CreateReleaseLockTransaction(prevTxid, currentHeight)
	if err != nil {
		return "", errors.Wrap(err, "failed to create release transaction")
	}

	return m.persistAndBroadcast(tx, models.RecordTypeReturnToWallet, prevAmount)
}

// persistAndBroadcast stores the record before broadcasting it, per the
// spec's mandatory persist-before-broadcast ordering: a crash between store
// and broadcast recovers via the next tick's rebroadcast path, whereas a
// crash between broadcast and store would make the transaction
// undiscoverable from monitor state.
func (m *Monitor) persistAndBroadcast(tx *models.BitcoinLockTransactionModel, recordType models.RecordType, desiredAmount int64) (Outcome, error) {
	record := &models.TransactionRecord{
		Type:                        recordType,
		TransactionID:               tx.TransactionID,
		RedeemScriptAsHex:           tx.RedeemScriptAsHex,
		RawTransaction:              tx.SerializedTransactionObject,
		DesiredLockAmountInSatoshis: desiredAmount,
	}

	if err := m.store.Append(record); err != nil {
		return "", errors.Wrap(err, "failed to persist lock transaction record")
	}

	if err := m.client.BroadcastLockTransaction(tx); err != nil {
		return "", errors.Wrap(err, "failed to broadcast lock transaction")
	}

	switch recordType {
	case models.RecordTypeCreate:
		return OutcomeCreated, nil
	case models.RecordTypeRelock:
		return OutcomeRelocked, nil
	default:
		return OutcomeReleased, nil
	}
}
