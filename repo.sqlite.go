package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Ensure *sqliteBookStorage implements BookStorage.
var _ BookStorage = (*sqliteBookStorage)(nil)

// bookRecord is the gorm model of the books table.
type bookRecord struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Title           string `gorm:"size:255;not null"`
	Author          string `gorm:"size:255;not null"`
	PublicationYear int    `gorm:"column:publicationyear;not null"`
	ISBN            string `gorm:"column:isbn;size:255;not null;uniqueIndex:books_isbn_key"`
}

func (bookRecord) TableName() string {
	return "books"
}

func (r bookRecord) toBook() Book {
	return Book{ID: r.ID, Title: r.Title, Author: r.Author, PublicationYear: r.PublicationYear, ISBN: r.ISBN}
}

func newBookRecord(b Book) bookRecord {
	return bookRecord{ID: b.ID, Title: b.Title, Author: b.Author, PublicationYear: b.PublicationYear, ISBN: b.ISBN}
}

type sqliteBookStorage struct {
	logger  *zap.Logger
	db      *gorm.DB
	timeout time.Duration
}

// GetSQLiteDB opens the database file and migrates the books table.
// Ids are never reused since the primary key is AUTOINCREMENT.
func GetSQLiteDB(config *Config) (*gorm.DB, error) {
	if dir := filepath.Dir(config.SQLite.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database folder: %v", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(config.SQLite.FilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = db.AutoMigrate(&bookRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewSQLiteBookStorage provides an instance of sqlite-based book storage.
func NewSQLiteBookStorage(logger *zap.Logger, db *gorm.DB, timeout time.Duration) BookStorage {
	return &sqliteBookStorage{logger: logger, db: db, timeout: timeout}
}

func (ss *sqliteBookStorage) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := WithQueryTimeout(ctx, ss.timeout)
	return ss.db.WithContext(ctx), cancel
}

func (ss *sqliteBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	record := newBookRecord(book)
	record.ID = 0
	if err := db.Create(&record).Error; err != nil {
		return book, err
	}
	return record.toBook(), nil
}

func (ss *sqliteBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	var record bookRecord
	err := db.First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return record.toBook(), nil
}

func (ss *sqliteBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	var records []bookRecord
	if err := db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(records))
	for _, r := range records {
		books = append(books, r.toBook())
	}
	return books, nil
}

// Update overwrites every mutable column, zero values included.
func (ss *sqliteBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	result := db.Model(&bookRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":           book.Title,
		"author":          book.Author,
		"publicationyear": book.PublicationYear,
		"isbn":            book.ISBN,
	})
	if result.Error != nil {
		return book, result.Error
	}
	if result.RowsAffected == 0 {
		return book, ErrBookNotFound
	}
	book.ID = id
	return book, nil
}

func (ss *sqliteBookStorage) Delete(ctx context.Context, id int64) error {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	result := db.Delete(&bookRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (ss *sqliteBookStorage) HasDuplicate(ctx context.Context, book Book, excludeID int64) (bool, error) {
	db, cancel := ss.withTimeout(ctx)
	defer cancel()
	var count int64
	err := db.Model(&bookRecord{}).
		Where("(title = ? OR isbn = ?) AND id <> ?", book.Title, book.ISBN, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (ss *sqliteBookStorage) Ping(ctx context.Context) error {
	sqlDB, err := ss.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := WithQueryTimeout(ctx, ss.timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (ss *sqliteBookStorage) Close() error {
	sqlDB, err := ss.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
