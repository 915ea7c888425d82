/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/lock/models"
)

// FileStore is a Store backed by a single append-only JSON-lines file.
// Append fsyncs before returning: a record is never considered persisted
// while it could still be lost to a crash (spec §4.9).
type FileStore struct {
	mutex sync.Mutex
	file  *os.File
	last  *models.TransactionRecord
}

// NewFileStore opens (creating if necessary) path as an append-only log and
// replays it to recover the last record.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "lock store: failed to open file")
	}

	last, err := replayLast(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "lock store: failed to seek to end")
	}

	return &FileStore{file: f, last: last}, nil
}

func replayLast(f *os.File) (*models.TransactionRecord, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last *models.TransactionRecord

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record models.TransactionRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, errors.Wrap(err, "lock store: corrupt record in log")
		}

		last = &record
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "lock store: failed to read log")
	}

	return last, nil
}

// Append implements Store.
func (s *FileStore) Append(record *models.TransactionRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record.RecordID == "" {
		record.RecordID = uuid.New().String()
	}

	line, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "lock store: failed to marshal record")
	}

	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		return errors.Wrap(err, "lock store: failed to write record")
	}

	if err := s.file.Sync(); err != nil {
		return errors.Wrap(err, "lock store: failed to fsync record")
	}

	s.last = record

	return nil
}

// GetLastLock implements Store.
func (s *FileStore) GetLastLock() (*models.TransactionRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.last, nil
}

// Close releases the underlying file handle.
func (s *FileStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.file.Close()
}

var _ Store = (*FileStore)(nil)
