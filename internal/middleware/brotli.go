package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes response compression.
type BrotliConfig struct {
	Quality int
	// MinLength is the smallest body worth compressing. Shorter bodies go out as-is.
	MinLength int
	Skipper   func(c *gin.Context) bool
}

// DefaultBrotliConfig compresses bodies of 1 KiB and more at the default quality.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers the body until MinLength is reached, then switches to
// streaming brotli output. A body that never reaches MinLength is sent plain.
type brotliWriter struct {
	gin.ResponseWriter
	quality    int
	minLength  int
	buf        []byte
	encoder    *brotli.Writer
	compressed bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.compressed {
		return bw.encoder.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}

	h := bw.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	bw.encoder = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)
	bw.compressed = true

	if _, err := bw.encoder.Write(bw.buf); err != nil {
		return 0, err
	}
	bw.buf = nil
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush pushes everything written so far to the client.
func (bw *brotliWriter) Flush() {
	if bw.compressed {
		_ = bw.encoder.Flush()
	} else {
		_ = bw.writePlain()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) writePlain() error {
	if len(bw.buf) == 0 {
		return nil
	}
	_, err := bw.ResponseWriter.Write(bw.buf)
	bw.buf = nil
	return err
}

func (bw *brotliWriter) finish() error {
	if bw.compressed {
		return bw.encoder.Close()
	}
	return bw.writePlain()
}

// Brotli compresses responses for clients that accept "br".
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig is Brotli with explicit settings.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isStreaming(c) || c.Request.Method == http.MethodHead || !acceptsBrotli(c.Request) ||
			(cfg.Skipper != nil && cfg.Skipper(c)) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// isStreaming reports SSE and WebSocket requests, which must not be buffered.
func isStreaming(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

// acceptsBrotli honours "br" in Accept-Encoding unless it carries q=0.
func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "br") {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}
