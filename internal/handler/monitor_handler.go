package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live proctoring boards over SSE.
type MonitorHandler struct {
	rdb     *redis.Client
	monitor *service.MonitorService

	refreshEvery   time.Duration
	keepAliveEvery time.Duration
}

// NewMonitorHandler creates a new MonitorHandler. A nil Redis client
// disables live events; the stream then only carries periodic refreshes.
func NewMonitorHandler(rdb *redis.Client, monitor *service.MonitorService) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		monitor:        monitor,
		refreshEvery:   refreshInterval,
		keepAliveEvery: keepAliveInterval,
	}
}

// MonitorAssessmentSSE godoc
// GET /api/v1/admin/assessments/:assessment_id/monitor
// Sends a snapshot, then forwards session events from Redis Pub/Sub and
// re-sends the snapshot periodically while anyone is active.
func (h *MonitorHandler) MonitorAssessmentSSE(c *gin.Context) {
	assessmentID, ok := paramUUID(c, "assessment_id")
	if !ok {
		return
	}
	reqCtx := c.Request.Context()
	log := requestLog(c, "monitor_handler").With().Str("assessment_id", assessmentID.String()).Logger()

	snapshot, err := h.snapshot(reqCtx, assessmentID)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	writeSnapshot(c, "snapshot", snapshot)

	var ch <-chan *redis.Message
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.AssessmentMonitorChannel(assessmentID.String()))
		defer pubsub.Close()
		ch = pubsub.Channel()
	}

	keepAliveTicker := time.NewTicker(h.keepAliveEvery)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(h.refreshEvery)
	defer refreshTicker.Stop()

	// Skip refreshes while nobody is taking the assessment.
	active := len(snapshot.Active) > 0

	log.Info().Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			// Forward raw JSON; events are already serialized by the bus.
			writeData(c, []byte(msg.Payload))
			active = true

		case <-refreshTicker.C:
			if !active {
				continue
			}
			snapshot, err := h.snapshot(reqCtx, assessmentID)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to refresh monitor snapshot")
				continue
			}
			writeSnapshot(c, "refresh", snapshot)
			active = len(snapshot.Active) > 0

		case <-keepAliveTicker.C:
			writeData(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) snapshot(ctx context.Context, assessmentID uuid.UUID) (*service.MonitorSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	return h.monitor.Snapshot(ctx, assessmentID)
}

func writeSnapshot(c *gin.Context, kind string, snapshot *service.MonitorSnapshot) {
	c.SSEvent("message", gin.H{"type": kind, "data": snapshot})
	c.Writer.Flush()
}

func writeData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
