package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// SystemHandler reports readiness of the backing stores together with Go
// runtime and worker queue metrics.
type SystemHandler struct {
	health    *database.HealthChecker
	rdb       *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(health *database.HealthChecker, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{
		health:    health,
		rdb:       rdb,
		startTime: time.Now(),
	}
}

type systemStatus struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Uptime    string            `json:"uptime"`
	Timestamp int64             `json:"timestamp"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	// Worker Queues
	QueueCertificates *int64 `json:"queue_certificates,omitempty"`
	QueueIncidents    *int64 `json:"queue_incidents,omitempty"`
}

// Health godoc
// GET /health
// 200 when every store answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	checks, healthy := h.health.Check(c.Request.Context())
	st := h.collect(c.Request.Context())
	st.Checks = checks

	if !healthy {
		st.Status = "degraded"
		log := requestLog(c, "system_handler")
		log.Warn().Interface("checks", checks).Msg("Health check failed")
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, st)
		return
	}
	st.Status = "ok"
	response.Success(c, http.StatusOK, st)
}

func (h *SystemHandler) collect(ctx context.Context) systemStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	st := systemStatus{
		Uptime:     formatDuration(time.Since(h.startTime)),
		Timestamp:  time.Now().Unix(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
		GoVersion:  runtime.Version(),
	}

	if h.rdb == nil {
		return st
	}

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	certCmd := pipe.LLen(ctx, config.WorkerKey.CertificateRequestsQueue)
	incidentCmd := pipe.LLen(ctx, config.WorkerKey.IntegrityIncidentsQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		certs, _ := certCmd.Result()
		incidents, _ := incidentCmd.Result()
		st.QueueCertificates = &certs
		st.QueueIncidents = &incidents
	}
	return st
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
