// Package logger holds the process-wide zap logger and the access log shared
// by the HTTP middleware and the gRPC interceptor.
package logger

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Log is the global SugaredLogger. It discards everything until Init is called.
var Log = zap.NewNop().Sugar()

// AccessRecord is what the access log reports about one request besides its
// route and timing. Handlers fill it in while the request is served.
type AccessRecord struct {
	Status int
	Size   int
	UserID string
}

type accessRecordKey struct{}

// WithAccessRecord attaches a fresh AccessRecord to ctx.
func WithAccessRecord(ctx context.Context) (context.Context, *AccessRecord) {
	record := &AccessRecord{}
	return context.WithValue(ctx, accessRecordKey{}, record), record
}

// SetAccessUser stores the authenticated user id in the request's AccessRecord.
// It does nothing when ctx carries no record.
func SetAccessUser(ctx context.Context, userID string) {
	if record, ok := ctx.Value(accessRecordKey{}).(*AccessRecord); ok {
		record.UserID = userID
	}
}

type recordingResponseWriter struct {
	http.ResponseWriter
	record *AccessRecord
}

func (w *recordingResponseWriter) Write(b []byte) (int, error) {
	if w.record.Status == 0 {
		w.record.Status = http.StatusOK
	}
	size, err := w.ResponseWriter.Write(b)
	w.record.Size += size
	return size, err
}

func (w *recordingResponseWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.record.Status = statusCode
}

// Init builds the global logger with the given level ("debug", "info", ...).
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes buffered entries. Syncing a terminal is not treated as an error.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingHTTPMiddleware writes one access log entry per request: method,
// URI, status, duration, size, request id and the authenticated user, if any.
// Request bodies and headers are never logged.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx, record := WithAccessRecord(r.Context())
		h.ServeHTTP(&recordingResponseWriter{ResponseWriter: w, record: record}, r.WithContext(ctx))

		Log.Infow(
			"http request",
			"uri", r.RequestURI,
			"method", r.Method,
			"status", record.Status,
			"duration", time.Since(start),
			"size", record.Size,
			"request_id", middleware.GetReqID(r.Context()),
			"user_id", record.UserID,
		)
	}

	return http.HandlerFunc(logFn)
}

// RPC writes the access log entry of a finished gRPC call.
func RPC(method string, duration time.Duration, code string, record *AccessRecord) {
	Log.Infow(
		"grpc request",
		"method", method,
		"duration", duration,
		"code", code,
		"user_id", record.UserID,
	)
}
