// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger persists analysis snapshots in BadgerDB.
//
// A snapshot is one analysis result of one source file at one moment.
// Snapshots form a per-file history; they are never consulted to skip
// parsing.
package badger

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/pyoutline/services/outline/extract"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerDB key prefixes for snapshots.
const (
	keyPrefixSnap      = "outline:snap:"
	keyPrefixSnapIndex = "outline:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// ErrSnapshotNotFound is returned when no snapshot matches the request.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMetadata describes a stored snapshot.
type SnapshotMetadata struct {
	// SnapshotID is a random UUID.
	SnapshotID string `json:"snapshot_id"`

	// FilePath is the analyzed file as given to Save.
	FilePath string `json:"file_path"`

	// FileHash is SHA256(FilePath)[:16], the key grouping prefix.
	FileHash string `json:"file_hash"`

	// SourceHash is the SHA256 of the analyzed source.
	SourceHash string `json:"source_hash"`

	CreatedAt time.Time `json:"created_at"`

	Imports   int `json:"imports"`
	Functions int `json:"functions"`
	Classes   int `json:"classes"`

	// CompressedSize is the stored payload size in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is SHA256 of the compressed payload, checked on load.
	ContentHash string `json:"content_hash"`
}

// Store reads and writes snapshots.
//
// Thread Safety: Safe for concurrent use; BadgerDB serializes transactions.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	owned  bool
}

// Open opens (or creates) a BadgerDB at dir and wraps it in a Store that
// closes the database on Close.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory must not be empty")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}
	s, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewStore wraps an open database. The caller keeps ownership of db.
func NewStore(db *badger.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Save persists result as a new snapshot of filePath.
//
// Key Schema:
//
//	outline:snap:{fileHash}:{id}:data → gzip(JSON(AnalysisResult))
//	outline:snap:{fileHash}:{id}:meta → JSON(SnapshotMetadata)
//	outline:snap:{fileHash}:latest    → id
//	outline:snap:index:{id}           → fileHash
func (s *Store) Save(ctx context.Context, filePath string, source []byte, result *extract.AnalysisResult) (*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("result must not be nil")
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing result: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	compressedData := compressed.Bytes()

	meta := &SnapshotMetadata{
		SnapshotID:     uuid.NewString(),
		FilePath:       filePath,
		FileHash:       FileHash(filePath),
		SourceHash:     hashBytes(source),
		CreatedAt:      time.Now().UTC(),
		Imports:        len(result.Imports),
		Functions:      result.FunctionCount(),
		Classes:        len(result.Classes),
		CompressedSize: int64(len(compressedData)),
		ContentHash:    hashBytes(compressedData),
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	dataKey, metaKey := snapshotKeys(meta.FileHash, meta.SnapshotID)
	latestKey := keyPrefixSnap + meta.FileHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + meta.SnapshotID

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressedData); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set([]byte(metaKey), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set([]byte(latestKey), []byte(meta.SnapshotID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(indexKey), []byte(meta.FileHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	s.logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("file", filePath),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load returns the snapshot with the given ID.
func (s *Store) Load(ctx context.Context, snapshotID string) (*extract.AnalysisResult, *SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}

	fileHash, err := s.lookupString(keyPrefixSnapIndex + snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return s.loadByKeys(fileHash, snapshotID)
}

// LoadLatest returns the most recent snapshot of filePath.
func (s *Store) LoadLatest(ctx context.Context, filePath string) (*extract.AnalysisResult, *SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fileHash := FileHash(filePath)
	snapshotID, err := s.lookupString(keyPrefixSnap + fileHash + keySuffixLatest)
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", filePath, err)
	}
	return s.loadByKeys(fileHash, snapshotID)
}

// List returns snapshot metadata, newest first.
//
// Inputs:
//   - filePath: Optional filter. Empty lists every file.
//   - limit: Maximum results. Non-positive means DefaultListLimit.
func (s *Store) List(ctx context.Context, filePath string, limit int) ([]*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	prefix := keyPrefixSnap
	if filePath != "" {
		prefix = keyPrefixSnap + FileHash(filePath) + ":"
	}

	results := make([]*SnapshotMetadata, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}

			var meta SnapshotMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	slices.SortFunc(results, func(a, b *SnapshotMetadata) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot and, if it was the latest, the latest pointer.
func (s *Store) Delete(ctx context.Context, snapshotID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}

	fileHash, err := s.lookupString(keyPrefixSnapIndex + snapshotID)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	dataKey, metaKey := snapshotKeys(fileHash, snapshotID)
	latestKey := keyPrefixSnap + fileHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + snapshotID

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{dataKey, metaKey, indexKey} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
		}

		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return nil
		}
		var currentLatest string
		_ = item.Value(func(val []byte) error {
			currentLatest = string(val)
			return nil
		})
		if currentLatest == snapshotID {
			if err := txn.Delete([]byte(latestKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting latest pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	s.logger.Info("snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

func (s *Store) loadByKeys(fileHash, snapshotID string) (*extract.AnalysisResult, *SnapshotMetadata, error) {
	dataKey, metaKey := snapshotKeys(fileHash, snapshotID)

	var compressedData, metaJSON []byte
	err := s.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return notFound(err, snapshotID)
		}
		if compressedData, err = dataItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}

		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return notFound(err, snapshotID)
		}
		if metaJSON, err = metaItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(compressedData); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", snapshotID, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}
	defer gr.Close()

	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", snapshotID, err)
	}

	result := extract.NewAnalysisResult()
	if err := json.Unmarshal(jsonData, result); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling result for %s: %w", snapshotID, err)
	}
	return result, &meta, nil
}

func (s *Store) lookupString(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrSnapshotNotFound
	}
	return value, err
}

func notFound(err error, snapshotID string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return fmt.Errorf("reading snapshot %s: %w", snapshotID, err)
}

func snapshotKeys(fileHash, snapshotID string) (dataKey, metaKey string) {
	base := keyPrefixSnap + fileHash + ":" + snapshotID
	return base + keySuffixData, base + keySuffixMeta
}

// FileHash returns SHA256(filePath)[:16], the key prefix of a file's history.
func FileHash(filePath string) string {
	return hashBytes([]byte(filePath))[:16]
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
