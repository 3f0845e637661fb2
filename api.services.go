package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	Delete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, book Book) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	storage BookStorage
	queue   Queuer
}

// NewBookService provides a book service. The queue is optional, when nil
// no change events are published.
func NewBookService(logger *zap.Logger, config *Config, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		storage: storage,
		queue:   queue,
	}
}

// Add inserts the book if no stored book shares its title or isbn.
func (bs *BookService) Add(ctx context.Context, book Book) (Book, error) {
	dup, err := bs.storage.HasDuplicate(ctx, book, 0)
	if err != nil {
		return book, fmt.Errorf("service: check duplicate: %w", err)
	}
	if dup {
		return book, ErrBookExists
	}

	book, err = bs.storage.Add(ctx, book)
	if err != nil {
		return book, fmt.Errorf("service: add book: %w", err)
	}
	bs.publish(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	book, err := bs.storage.GetOne(ctx, id)
	if err != nil && !errors.Is(err, ErrBookNotFound) {
		return book, fmt.Errorf("service: get book: %w", err)
	}
	return book, err
}

// Update overwrites every mutable field of an existing book. The id is kept.
func (bs *BookService) Update(ctx context.Context, id int64, book Book) (Book, error) {
	if _, err := bs.GetOne(ctx, id); err != nil {
		return book, err
	}

	dup, err := bs.storage.HasDuplicate(ctx, book, id)
	if err != nil {
		return book, fmt.Errorf("service: check duplicate: %w", err)
	}
	if dup {
		return book, ErrBookExists
	}

	book, err = bs.storage.Update(ctx, id, book)
	if errors.Is(err, ErrBookNotFound) {
		// deleted in between the existence check and the write.
		return book, err
	}
	if err != nil {
		return book, fmt.Errorf("service: update book: %w", err)
	}
	bs.publish(ctx, UpdateQueue, book)
	return book, nil
}

func (bs *BookService) Delete(ctx context.Context, id int64) error {
	err := bs.storage.Delete(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("service: delete book: %w", err)
	}
	bs.publish(ctx, DeleteQueue, Book{ID: id})
	return nil
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: get all books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// publish pushes a change event. A failed push is only logged since the
// primary storage already holds the change.
func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}
