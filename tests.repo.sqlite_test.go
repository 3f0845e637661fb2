package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestSQLiteStorage returns a sqlite storage backed by a temporary file.
func newTestSQLiteStorage(t *testing.T) BookStorage {
	t.Helper()
	testConfig := &Config{
		SQLite: SQLiteConfig{FilePath: filepath.Join(t.TempDir(), "data", "library.db")},
	}
	db, err := GetSQLiteDB(testConfig)
	require.NoError(t, err, "failed in creating a test sqlite database")
	storage := NewSQLiteBookStorage(zap.NewNop(), db, 5*time.Second)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestSQLiteStorage_AddAndGetOne(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	book, err := storage.Add(ctx, Book{ID: 50, Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965, ISBN: "9780441013593"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID, "client id must be ignored")

	got, err := storage.GetOne(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)

	_, err = storage.GetOne(ctx, 2)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSQLiteStorage_UniqueISBNConstraint(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	_, err := storage.Add(ctx, Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"})
	require.NoError(t, err)
	_, err = storage.Add(ctx, Book{Title: "Other", Author: "Someone", ISBN: "9780441013593"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookExists)
}

func TestSQLiteStorage_GetAll(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	books, err := storage.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	for _, b := range []Book{
		{Title: "A", Author: "X", ISBN: "1"},
		{Title: "B", Author: "Y", ISBN: "2"},
		{Title: "C", Author: "Z", ISBN: "3"},
	} {
		_, err = storage.Add(ctx, b)
		require.NoError(t, err)
	}
	books, err = storage.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "A", books[0].Title)
	assert.Equal(t, "C", books[2].Title)
}

func TestSQLiteStorage_Update(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	book, err := storage.Add(ctx, Book{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965, ISBN: "9780441013593"})
	require.NoError(t, err)

	updated, err := storage.Update(ctx, book.ID, Book{Title: "Dune", Author: "F. Herbert", PublicationYear: 0, ISBN: "9780441013593"})
	require.NoError(t, err)
	assert.Equal(t, book.ID, updated.ID)

	got, err := storage.GetOne(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "F. Herbert", got.Author)
	assert.Equal(t, 0, got.PublicationYear, "zero values must be written")

	_, err = storage.Update(ctx, 99, Book{Title: "X", Author: "Y", ISBN: "Z"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSQLiteStorage_Delete(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	book, err := storage.Add(ctx, Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"})
	require.NoError(t, err)

	assert.NoError(t, storage.Delete(ctx, book.ID))
	assert.ErrorIs(t, storage.Delete(ctx, book.ID), ErrBookNotFound)
	_, err = storage.GetOne(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSQLiteStorage_HasDuplicate(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	dune, err := storage.Add(ctx, Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		book      Book
		excludeID int64
		expected  bool
	}{
		{"same title", Book{Title: "Dune", ISBN: "111"}, 0, true},
		{"same isbn", Book{Title: "Other", ISBN: "9780441013593"}, 0, true},
		{"no match", Book{Title: "Other", ISBN: "111"}, 0, false},
		{"own row excluded", Book{Title: "Dune", ISBN: "9780441013593"}, dune.ID, false},
		{"title is case sensitive", Book{Title: "dune", ISBN: "111"}, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dup, err := storage.HasDuplicate(ctx, tc.book, tc.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dup)
		})
	}
}

func TestSQLiteStorage_IDsNeverReused(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	first, err := storage.Add(ctx, Book{Title: "A", Author: "X", ISBN: "1"})
	require.NoError(t, err)
	second, err := storage.Add(ctx, Book{Title: "B", Author: "Y", ISBN: "2"})
	require.NoError(t, err)
	require.NoError(t, storage.Delete(ctx, second.ID))

	third, err := storage.Add(ctx, Book{Title: "C", Author: "Z", ISBN: "3"})
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestSQLiteStorage_PingAndClose(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	assert.NoError(t, storage.Ping(context.Background()))
	require.NoError(t, storage.Close())
	assert.Error(t, storage.Ping(context.Background()))
}
