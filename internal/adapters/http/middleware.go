package httpadapter

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"

    "deepscan/internal/logging"
)

type contextKey string

const (
    requestIDKey contextKey = "request_id"
    ownerKey     contextKey = "owner"
)

func requestIDMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
        if requestID == "" {
            requestID = uuid.NewString()
        }
        w.Header().Set("X-Request-Id", requestID)
        ctx := context.WithValue(r.Context(), requestIDKey, requestID)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// ownerMiddleware takes the bearer token as the caller's owner id. Token verification happens upstream.
func ownerMiddleware(public ...string) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            for _, p := range public {
                if r.URL.Path == p {
                    next.ServeHTTP(w, r)
                    return
                }
            }
            header := strings.TrimSpace(r.Header.Get("Authorization"))
            if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
                writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", requestIDFromContext(r.Context()))
                return
            }
            owner := strings.TrimSpace(header[7:])
            if owner == "" {
                writeError(w, http.StatusUnauthorized, "unauthorized", "empty bearer token", requestIDFromContext(r.Context()))
                return
            }
            ctx := context.WithValue(r.Context(), ownerKey, owner)
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}

func accessLog(next http.Handler) http.Handler {
    log := logging.New("http")
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        log.Info("request",
            "method", r.Method,
            "path", r.URL.Path,
            "status", ww.Status(),
            "bytes", ww.BytesWritten(),
            "duration", time.Since(start),
            "request_id", requestIDFromContext(r.Context()))
    })
}

func ownerFromContext(ctx context.Context) string {
    if v, ok := ctx.Value(ownerKey).(string); ok {
        return v
    }
    return ""
}

func requestIDFromContext(ctx context.Context) string {
    if v, ok := ctx.Value(requestIDKey).(string); ok {
        return v
    }
    return ""
}
