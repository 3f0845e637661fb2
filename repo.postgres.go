package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure *postgresBookStorage implements BookStorage.
var _ BookStorage = (*postgresBookStorage)(nil)

type postgresBookStorage struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	timeout time.Duration
}

// GetPostgresPool opens and checks a connection pool to the configured database.
func GetPostgresPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	pgConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %v", err)
	}
	if config.Postgres.MaxConns > 0 {
		pgConfig.MaxConns = config.Postgres.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %v", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return pool, nil
}

// MigratePostgres applies all pending embedded migrations.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool, timeout time.Duration) BookStorage {
	return &postgresBookStorage{logger: logger, pool: pool, timeout: timeout}
}

func (ps *postgresBookStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return WithQueryTimeout(ctx, ps.timeout)
}

// Add inserts a new book row and returns it with its assigned id.
func (ps *postgresBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	err := ps.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, publicationyear, isbn) VALUES ($1, $2, $3, $4) RETURNING id`,
		book.Title, book.Author, book.PublicationYear, book.ISBN,
	).Scan(&book.ID)
	return book, err
}

// GetOne retrieves a book row based on its id.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	var book Book
	err := ps.pool.QueryRow(ctx,
		`SELECT id, title, author, publicationyear, isbn FROM books WHERE id = $1`, id,
	).Scan(&book.ID, &book.Title, &book.Author, &book.PublicationYear, &book.ISBN)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

// GetAll retrieves all books ordered by id.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	rows, err := ps.pool.Query(ctx, `SELECT id, title, author, publicationyear, isbn FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var book Book
		if err = rows.Scan(&book.ID, &book.Title, &book.Author, &book.PublicationYear, &book.ISBN); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// Update overwrites the mutable columns of an existing row.
func (ps *postgresBookStorage) Update(ctx context.Context, id int64, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	tag, err := ps.pool.Exec(ctx,
		`UPDATE books SET title = $1, author = $2, publicationyear = $3, isbn = $4 WHERE id = $5`,
		book.Title, book.Author, book.PublicationYear, book.ISBN, id,
	)
	if err != nil {
		return book, err
	}
	if tag.RowsAffected() == 0 {
		return book, ErrBookNotFound
	}
	book.ID = id
	return book, nil
}

// Delete removes a book row based on its id.
func (ps *postgresBookStorage) Delete(ctx context.Context, id int64) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	tag, err := ps.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// HasDuplicate reports whether another row shares the title or the isbn.
func (ps *postgresBookStorage) HasDuplicate(ctx context.Context, book Book, excludeID int64) (bool, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	var exists bool
	err := ps.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE (title = $1 OR isbn = $2) AND id <> $3)`,
		book.Title, book.ISBN, excludeID,
	).Scan(&exists)
	return exists, err
}

func (ps *postgresBookStorage) Ping(ctx context.Context) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	return ps.pool.Ping(ctx)
}

// Close releases all pool connections.
func (ps *postgresBookStorage) Close() error {
	ps.pool.Close()
	return nil
}
