// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/AleutianAI/pyoutline/services/outline/extract"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func sampleResult() *extract.AnalysisResult {
	ret := "int"
	calls := []extract.FunctionCall{{Name: "print"}}
	result := extract.NewAnalysisResult()
	result.Imports = append(result.Imports, extract.ImportInfo{Name: "os"})
	result.Functions = append(result.Functions, extract.FunctionInfo{
		Name:       "add",
		Parameters: []extract.ParameterInfo{{Name: "a"}, {Name: "b"}},
		ReturnType: &ret,
		Calls:      &calls,
	})
	result.Classes = append(result.Classes, extract.ClassInfo{Name: "A", Methods: []extract.FunctionInfo{}})
	return result
}

func TestNewStore_RejectsNil(t *testing.T) {
	_, err := NewStore(nil, slog.Default())
	assert.Error(t, err)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()
	_, err = NewStore(db, nil)
	assert.Error(t, err)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, "input-files/math.py", []byte("import os\n"), sampleResult())
	require.NoError(t, err)
	assert.NotEmpty(t, meta.SnapshotID)
	assert.Equal(t, FileHash("input-files/math.py"), meta.FileHash)
	assert.Equal(t, 1, meta.Imports)
	assert.Equal(t, 1, meta.Functions)
	assert.Equal(t, 1, meta.Classes)
	assert.Positive(t, meta.CompressedSize)

	loaded, loadedMeta, err := store.Load(ctx, meta.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), loaded)
	assert.Equal(t, meta.SnapshotID, loadedMeta.SnapshotID)
	assert.Equal(t, meta.SourceHash, loadedMeta.SourceHash)
}

func TestStore_LoadUnknown(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Load(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, _, err = store.LoadLatest(context.Background(), "never-saved.py")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestStore_LoadLatestAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, "a.py", []byte("x = 1\n"), extract.NewAnalysisResult())
	require.NoError(t, err)
	second, err := store.Save(ctx, "a.py", []byte("import os\n"), sampleResult())
	require.NoError(t, err)
	_, err = store.Save(ctx, "b.py", nil, extract.NewAnalysisResult())
	require.NoError(t, err)

	_, latest, err := store.LoadLatest(ctx, "a.py")
	require.NoError(t, err)
	assert.Equal(t, second.SnapshotID, latest.SnapshotID)

	list, err := store.List(ctx, "a.py", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.SnapshotID, list[0].SnapshotID)
	assert.Equal(t, first.SnapshotID, list[1].SnapshotID)

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, "a.py", nil, sampleResult())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, meta.SnapshotID))

	_, _, err = store.Load(ctx, meta.SnapshotID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, _, err = store.LoadLatest(ctx, "a.py")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	list, err := store.List(ctx, "a.py", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, store.Delete(ctx, meta.SnapshotID), ErrSnapshotNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "a.py", nil, sampleResult())
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.List(ctx, "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_OpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	meta, err := store.Save(context.Background(), "a.py", nil, sampleResult())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer reopened.Close()

	_, loaded, err := reopened.Load(context.Background(), meta.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, meta.SnapshotID, loaded.SnapshotID)

	_, err = Open("", slog.Default())
	assert.Error(t, err)
}
