package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// IncidentWriter persists integrity incidents.
type IncidentWriter interface {
	CopyIncidents(ctx context.Context, batch []model.IntegrityIncident) (int64, error)
	InsertIncident(ctx context.Context, inc model.IntegrityIncident) error
}

// IncidentWorker drains integrity_incidents_queue into PostgreSQL in batches.
type IncidentWorker struct {
	writer         IncidentWriter
	rdb            *redis.Client
	requeueBackoff time.Duration
	log            zerolog.Logger
}

// NewIncidentWorker creates a new IncidentWorker.
func NewIncidentWorker(writer IncidentWriter, rdb *redis.Client, log zerolog.Logger) *IncidentWorker {
	return &IncidentWorker{
		writer:         writer,
		rdb:            rdb,
		requeueBackoff: 2 * time.Second,
		log:            log.With().Str("component", "incident_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *IncidentWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]model.IntegrityIncident, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.IntegrityIncidentsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			pause(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var inc model.IntegrityIncident
		if err := json.Unmarshal([]byte(result[1]), &inc); err != nil {
			// Malformed payloads can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed incident")
			continue
		}
		buffer = append(buffer, inc)
	}
}

// flushSafe tries a bulk COPY, then row-by-row inserts, then requeues what still failed.
func (w *IncidentWorker) flushSafe(ctx context.Context, batch []model.IntegrityIncident) {
	if len(batch) == 0 {
		return
	}
	_, err := w.writer.CopyIncidents(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.IntegrityIncident
	for _, inc := range batch {
		if err := w.writer.InsertIncident(ctx, inc); err != nil {
			w.log.Error().Err(err).
				Str("session_id", inc.SessionID.String()).
				Msg("Insert failed, requeueing")
			failed = append(failed, inc)
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *IncidentWorker) requeue(ctx context.Context, items []model.IntegrityIncident) {
	pipe := w.rdb.Pipeline()
	for _, inc := range items {
		data, _ := json.Marshal(inc)
		pipe.RPush(ctx, config.WorkerKey.IntegrityIncidentsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue incidents. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed incidents")
	pause(ctx, w.requeueBackoff)
}

func (w *IncidentWorker) shutdown(buffer []model.IntegrityIncident) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flushSafe(shutdownCtx, buffer)
}
