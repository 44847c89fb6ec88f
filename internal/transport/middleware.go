package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// IdempotencyHeader names the client-chosen key that makes a POST replayable.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyTTL is how long a completed POST stays replayable.
const IdempotencyTTL = 10 * time.Minute

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/api/state":        true,
	"/api/notification": true,
	"/api/ws":           true,
	"/healthz":          true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path] {
			slog.Debug("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+IdempotencyHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ResponseCache stores replayable responses with an expiry.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the first successful response of a POST that
// carries an Idempotency-Key, so a retried add never creates a second prompt.
// Concurrent requests with the same key wait for the first one and replay it.
// Failed responses are not stored and the retry runs again.
func IdempotencyMiddleware(cache ResponseCache) gin.HandlerFunc {
	var inflight singleflight.Group

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}

		cacheKey := c.Request.URL.Path + "|" + key
		ctx := c.Request.Context()

		if stored, ok := loadResponse(ctx, cache, cacheKey); ok {
			replay(c, stored)
			return
		}

		ran := false
		v, _, _ := inflight.Do(cacheKey, func() (any, error) {
			if stored, ok := loadResponse(ctx, cache, cacheKey); ok {
				return stored, nil
			}
			ran = true
			return record(c, cache, cacheKey), nil
		})
		if ran {
			return
		}

		stored := v.(storedResponse)
		if !stored.succeeded() {
			record(c, cache, cacheKey)
			return
		}
		replay(c, stored)
	}
}

func (r storedResponse) succeeded() bool {
	return r.Status >= 200 && r.Status < 300
}

func loadResponse(ctx context.Context, cache ResponseCache, cacheKey string) (storedResponse, bool) {
	raw, err := cache.Get(ctx, cacheKey)
	if err != nil {
		return storedResponse{}, false
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return storedResponse{}, false
	}
	return stored, true
}

func replay(c *gin.Context, stored storedResponse) {
	c.Header("Idempotent-Replay", "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}

// record runs the rest of the chain and stores the response when it succeeded.
func record(c *gin.Context, cache ResponseCache, cacheKey string) storedResponse {
	w := &recordingWriter{ResponseWriter: c.Writer}
	c.Writer = w
	c.Next()

	stored := storedResponse{
		Status:      w.Status(),
		ContentType: w.Header().Get("Content-Type"),
		Body:        w.body.Bytes(),
	}
	if !stored.succeeded() {
		return stored
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return stored
	}
	if err := cache.Set(c.Request.Context(), cacheKey, raw, IdempotencyTTL); err != nil {
		slog.Warn("idempotency store failed", "key", cacheKey, "error", err)
	}
	return stored
}
