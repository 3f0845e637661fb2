package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// Ensure *boltBookMirror implements BookMirror.
var _ BookMirror = (*boltBookMirror)(nil)

type boltBookMirror struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookMirror provides the bolt-based copy of the books catalog.
func NewBoltBookMirror(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) *boltBookMirror {
	return &boltBookMirror{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// mirrorKey encodes the id in big endian so the cursor walks books by ascending id.
func mirrorKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

// Close shuts down the bolt-based mirror.
func (bm *boltBookMirror) Close() error {
	return bm.client.Close()
}

// Save inserts or replaces the book copy.
func (bm *boltBookMirror) Save(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bm.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bm.config.BucketName)).Put(mirrorKey(book.ID), bookBytes)
	})
}

// Remove deletes the book copy. Removing an unknown id is not an error.
func (bm *boltBookMirror) Remove(_ context.Context, id int64) error {
	return bm.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bm.config.BucketName)).Delete(mirrorKey(id))
	})
}

// GetOne retrieves a mirrored book based on its id.
func (bm *boltBookMirror) GetOne(_ context.Context, id int64) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bm.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bm.config.BucketName)).Get(mirrorKey(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// GetAll retrieves a list of all mirrored books.
func (bm *boltBookMirror) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bm.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the books' bucket.
	c := tx.Bucket([]byte(bm.config.BucketName)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}
