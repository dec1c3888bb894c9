// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists conversation turns in an embedded BadgerDB.
//
// Keys:
//
//	conv/{jobID}/{seq}  one turn, seq is a zero-padded append counter
//	convid/{jobID}      the server-issued conversation identifier
//
// The turn log is append-only; the history endpoint reads it back in key
// order, which is chronological by construction.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/datatypes"
)

// ConversationStore is the persistence contract the handlers depend on.
type ConversationStore interface {
	// EnsureConversationID returns the conversation identifier for a job,
	// minting one on first use. IDs are server-issued and stable.
	EnsureConversationID(ctx context.Context, jobID string) (string, error)

	// Append adds one turn to a job's conversation log.
	Append(ctx context.Context, jobID string, turn datatypes.Turn) error

	// History returns all persisted turns for a job in chronological order.
	// A job with no prior turns yields an empty message list, not an error.
	History(ctx context.Context, jobID string) (*datatypes.HistoryResponse, error)
}

// Config holds configuration for the Badger-backed store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing and for dev deployments with no volume.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests and dev mode.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerStore struct {
	db *badger.DB

	// mu serializes appends per process so sequence numbers never collide.
	mu sync.Mutex
}

// Open opens (or creates) the conversation store.
func Open(cfg Config) (ConversationStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	slog.Info("Opened conversation store", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &badgerStore{db: db}, nil
}

// Close releases the underlying database. The store is unusable afterwards.
func Close(s ConversationStore) error {
	bs, ok := s.(*badgerStore)
	if !ok {
		return nil
	}
	return bs.db.Close()
}

func turnKey(jobID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("conv/%s/%012d", jobID, seq))
}

func turnPrefix(jobID string) []byte {
	return []byte(fmt.Sprintf("conv/%s/", jobID))
}

func convIDKey(jobID string) []byte {
	return []byte("convid/" + jobID)
}

func (s *badgerStore) EnsureConversationID(ctx context.Context, jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("job id must not be empty")
	}
	var id string
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(convIDKey(jobID))
		if err == nil {
			return item.Value(func(val []byte) error {
				id = string(val)
				return nil
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		id = "conv_" + uuid.New().String()
		return txn.Set(convIDKey(jobID), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("ensure conversation id: %w", err)
	}
	return id, nil
}

func (s *badgerStore) Append(ctx context.Context, jobID string, turn datatypes.Turn) error {
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("job id must not be empty")
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.nextSeq(jobID)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(turnKey(jobID, seq), data)
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// nextSeq scans the job's prefix in reverse for the highest sequence. Turn
// logs are short (one conversation per job), so the scan stays cheap.
func (s *badgerStore) nextSeq(jobID string) (uint64, error) {
	var next uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := turnPrefix(jobID)
		// Reverse iteration starts past the prefix range: 0xFF is above any
		// digit byte used in the zero-padded sequence.
		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if it.ValidForPrefix(prefix) {
			key := string(it.Item().Key())
			var last uint64
			if _, err := fmt.Sscanf(key[len(prefix):], "%d", &last); err == nil {
				next = last + 1
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan turn log: %w", err)
	}
	return next, nil
}

func (s *badgerStore) History(ctx context.Context, jobID string) (*datatypes.HistoryResponse, error) {
	resp := &datatypes.HistoryResponse{Messages: []datatypes.Turn{}}

	err := s.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get(convIDKey(jobID)); err == nil {
			_ = item.Value(func(val []byte) error {
				resp.ConversationID = string(val)
				return nil
			})
		}

		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := turnPrefix(jobID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var turn datatypes.Turn
				if err := json.Unmarshal(val, &turn); err != nil {
					// A corrupt record must not sink the whole history.
					slog.Warn("Skipping undecodable turn record", "key", string(it.Item().Key()), "error", err)
					return nil
				}
				resp.Messages = append(resp.Messages, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return resp, nil
}

var _ ConversationStore = (*badgerStore)(nil)
