package main

import (
	"context"
	"errors"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book with same title or isbn already exists")
)

// Book represents a book entity. The id is assigned by the storage
// and is never read from client payloads.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publicationyear"`
	ISBN            string `json:"isbn"`
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) error
	// HasDuplicate reports whether a book other than excludeID
	// already uses the title or the isbn of the given book.
	HasDuplicate(ctx context.Context, book Book, excludeID int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// BookMirror is the replicated copy of the catalog fed by change events.
type BookMirror interface {
	Save(ctx context.Context, book Book) error
	Remove(ctx context.Context, id int64) error
	GetAll(ctx context.Context) ([]Book, error)
}
