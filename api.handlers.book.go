package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Messages sent to clients by the book endpoints.
const (
	msgBookAdded      = "Book added successfully."
	msgBookUpdated    = "Book updated successfully."
	msgBookDeleted    = "Book deleted successfully."
	msgBookExists     = "A book with the same Name or ISBN already exists."
	msgUpdateConflict = "Unable to update book. Title or ISBN might already exist."
	msgInvalidInput   = "Invalid input data. Please check the book details."
	msgInvalidID      = "Invalid ID. The ID must be greater than zero."
	msgNotIntegerID   = "Invalid ID. The ID must be an integer."
	msgBookNotFound   = "Book not found."
	msgBookIDNotFound = "Book with ID %d was not found."
	msgInternalError  = "Failed to process the request. Please try again later."
)

// BookLocation returns the path of a single book resource.
func BookLocation(id int64) string {
	return fmt.Sprintf("/api/v1/book/%d", id)
}

func (api *APIHandler) sendMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := WriteMessage(r.Context(), w, status, message); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Int("status", status), zap.Error(err))
	}
}

// CreateBook godoc
//
//	@Summary	Add a new book
//	@Tags		books
//	@Accept		json
//	@Produce	plain
//	@Param		book	body		Book	true	"book details"
//	@Success	200		{string}	string	"Book added successfully."
//	@Failure	400		{string}	string	"Invalid input data or a book with the same Name or ISBN already exists."
//	@Failure	500		{string}	string
//	@Router		/api/v1/book [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var book Book
	logger := api.GetLoggerFromContext(r.Context())
	if err := DecodeBookRequestBody(r, &book); err != nil {
		logger.Error("failed to decode book", zap.Error(err))
		api.sendMessage(w, r, http.StatusBadRequest, msgInvalidInput)
		return
	}

	if err := ValidateBookRequestBody(&book); err != nil {
		logger.Error("invalid book", zap.Error(err))
		api.sendMessage(w, r, http.StatusBadRequest, msgInvalidInput)
		return
	}

	book, err := api.bookService.Add(r.Context(), book)
	if errors.Is(err, ErrBookExists) {
		logger.Info("book already exists", zap.String("book.title", book.Title), zap.String("book.isbn", book.ISBN))
		api.sendMessage(w, r, http.StatusBadRequest, msgBookExists)
		return
	}
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.sendMessage(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	logger.Info("success to create book", zap.Int64("book.id", book.ID))
	w.Header().Set("Location", BookLocation(book.ID))
	api.sendMessage(w, r, http.StatusOK, msgBookAdded)
}

// GetAllBooks godoc
//
//	@Summary	List all books
//	@Tags		books
//	@Produce	json
//	@Success	200	{array}		Book
//	@Failure	500	{string}	string
//	@Router		/api/v1/book [get]
//
//nolint:bodyclose
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if api.config.Server.LongRequestWriteTimeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(api.clock.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
			logger.Debug("http: failed to update the write deadline", zap.Error(err))
		}
	}

	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to get all books", zap.Error(err))
		api.sendMessage(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}
	logger.Info("success to get all books", zap.Int("total", len(books)))
	if err = WriteJSON(r.Context(), w, http.StatusOK, books); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// GetOneBook godoc
//
//	@Summary	Get a book by id
//	@Tags		books
//	@Produce	json
//	@Param		id	path		int	true	"book id"
//	@Success	200	{object}	Book
//	@Failure	400	{string}	string	"Invalid ID. The ID must be greater than zero."
//	@Failure	404	{string}	string	"Book with ID {id} was not found."
//	@Failure	500	{string}	string
//	@Router		/api/v1/book/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil || id <= 0 {
		logger.Error("book id provided is not valid", zap.String("book.id", ps.ByName("id")))
		api.sendMessage(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Info("book does not exist", zap.Int64("book.id", id))
		api.sendMessage(w, r, http.StatusNotFound, fmt.Sprintf(msgBookIDNotFound, id))
		return
	}
	if err != nil {
		logger.Error("failed to get book", zap.Int64("book.id", id), zap.Error(err))
		api.sendMessage(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	logger.Info("success to get book", zap.Int64("book.id", id))
	if err = WriteJSON(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// UpdateBook godoc
//
//	@Summary	Update an existing book
//	@Tags		books
//	@Accept		json
//	@Produce	plain
//	@Param		id		path		int		true	"book id"
//	@Param		book	body		Book	true	"new book details"
//	@Success	200		{string}	string	"Book updated successfully."
//	@Failure	400		{string}	string	"Invalid input data or unable to update book. Title or ISBN might already exist."
//	@Failure	404		{string}	string	"Book with ID {id} was not found."
//	@Failure	500		{string}	string
//	@Router		/api/v1/book/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var book Book
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.String("book.id", ps.ByName("id")))
		api.sendMessage(w, r, http.StatusBadRequest, msgNotIntegerID)
		return
	}

	if err = DecodeBookRequestBody(r, &book); err != nil {
		logger.Error("failed to decode book", zap.Int64("book.id", id), zap.Error(err))
		api.sendMessage(w, r, http.StatusBadRequest, msgInvalidInput)
		return
	}

	if err = ValidateBookRequestBody(&book); err != nil {
		logger.Error("invalid book", zap.Int64("book.id", id), zap.Error(err))
		api.sendMessage(w, r, http.StatusBadRequest, msgInvalidInput)
		return
	}

	_, err = api.bookService.Update(r.Context(), id, book)
	switch {
	case errors.Is(err, ErrBookNotFound):
		logger.Info("book does not exist", zap.Int64("book.id", id))
		api.sendMessage(w, r, http.StatusNotFound, fmt.Sprintf(msgBookIDNotFound, id))
		return
	case errors.Is(err, ErrBookExists):
		logger.Info("book title or isbn already used", zap.Int64("book.id", id))
		api.sendMessage(w, r, http.StatusBadRequest, msgUpdateConflict)
		return
	case err != nil:
		logger.Error("failed to update book", zap.Int64("book.id", id), zap.Error(err))
		api.sendMessage(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	logger.Info("success to update book", zap.Int64("book.id", id))
	api.sendMessage(w, r, http.StatusOK, msgBookUpdated)
}

// DeleteOneBook godoc
//
//	@Summary	Delete a book by id
//	@Tags		books
//	@Produce	plain
//	@Param		id	path		int		true	"book id"
//	@Success	200	{string}	string	"Book deleted successfully."
//	@Failure	400	{string}	string	"Invalid ID. The ID must be an integer."
//	@Failure	404	{string}	string	"Book not found."
//	@Failure	500	{string}	string
//	@Router		/api/v1/book/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.String("book.id", ps.ByName("id")))
		api.sendMessage(w, r, http.StatusBadRequest, msgNotIntegerID)
		return
	}

	err = api.bookService.Delete(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Info("book does not exist", zap.Int64("book.id", id))
		api.sendMessage(w, r, http.StatusNotFound, msgBookNotFound)
		return
	}
	if err != nil {
		logger.Error("failed to delete book", zap.Int64("book.id", id), zap.Error(err))
		api.sendMessage(w, r, http.StatusInternalServerError, msgInternalError)
		return
	}

	logger.Info("success to delete book", zap.Int64("book.id", id))
	api.sendMessage(w, r, http.StatusOK, msgBookDeleted)
}
