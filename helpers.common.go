package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxFieldLength is the maximum number of characters of a book text field.
const MaxFieldLength = 255

var ErrMissingBody = errors.New("missing book request body")

type (
	ContextKey        string
	missingFieldError string
	fieldTooLongError string
)

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
	ConnContextKey          ContextKey = "http-conn"
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

func (f fieldTooLongError) Error() string {
	return string(f) + " must not exceed " + strconv.Itoa(MaxFieldLength) + " characters"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeBookRequestBody reads the content of a book creation or update request.
// An absent, empty or `null` body gives ErrMissingBody. Any client provided id
// is dropped since ids are assigned by the storage.
func DecodeBookRequestBody(r *http.Request, book *Book) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrMissingBody
	}
	var payload *Book
	err := json.NewDecoder(r.Body).Decode(&payload)
	if errors.Is(err, io.EOF) {
		return ErrMissingBody
	}
	if err != nil {
		return err
	}
	if payload == nil {
		return ErrMissingBody
	}
	*book = *payload
	book.ID = 0
	return nil
}

// ValidateBookRequestBody checks that required text fields are set and not too long.
func ValidateBookRequestBody(book *Book) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", book.Title},
		{"author", book.Author},
		{"isbn", book.ISBN},
	}
	for _, f := range fields {
		if len(strings.TrimSpace(f.value)) == 0 {
			return missingFieldError(f.name)
		}
		if utf8.RuneCountInString(f.value) > MaxFieldLength {
			return fieldTooLongError(f.name)
		}
	}
	return nil
}

// ParseBookID converts the id path parameter into a book id.
func ParseBookID(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

// WithQueryTimeout bounds a storage call. A non positive duration keeps the parent deadline only.
func WithQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// SaveConnInContext is the hook used by the server under ConnContext.
// It sets the underlying connection into the request context for later
// use by ReadDeadline or WriteDeadline method on *CustomResponseWriter.
func SaveConnInContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, ConnContextKey, c)
}

// GetConnFromContext returns the connection saved into the context or nil.
func GetConnFromContext(ctx context.Context) net.Conn {
	if c, ok := ctx.Value(ConnContextKey).(net.Conn); ok {
		return c
	}
	return nil
}
