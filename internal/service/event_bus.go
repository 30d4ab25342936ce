package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/clock"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// RedisEventBus publishes monitor events over Redis Pub/Sub and hands delivery
// work to the workers through Redis lists.
type RedisEventBus struct {
	rdb          *redis.Client
	clock        clock.Clock
	certificates bool
}

// NewRedisEventBus creates a new RedisEventBus. Certificate requests are
// dropped unless certificates is true.
func NewRedisEventBus(rdb *redis.Client, clk clock.Clock, certificates bool) *RedisEventBus {
	return &RedisEventBus{rdb: rdb, clock: clk, certificates: certificates}
}

// PublishSessionEvent notifies monitor subscribers of the session's assessment.
func (b *RedisEventBus) PublishSessionEvent(ctx context.Context, ev SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	channel := config.CacheKey.AssessmentMonitorChannel(ev.AssessmentID.String())
	return b.rdb.Publish(ctx, channel, data).Err()
}

// RequestCertificate enqueues a certificate request for the certificate worker.
func (b *RedisEventBus) RequestCertificate(ctx context.Context, sessionID uuid.UUID) error {
	if !b.certificates {
		return nil
	}
	data, err := json.Marshal(model.CertificateRequest{SessionID: sessionID, RequestedAt: b.clock.Now()})
	if err != nil {
		return fmt.Errorf("marshal certificate request: %w", err)
	}
	return b.rdb.RPush(ctx, config.WorkerKey.CertificateRequestsQueue, data).Err()
}

// ReportIntegrityIncident enqueues an incident for the incident worker.
func (b *RedisEventBus) ReportIntegrityIncident(ctx context.Context, ie *IntegrityError) error {
	incident := model.IntegrityIncident{
		CandidateKey: ie.CandidateKey,
		Kind:         ie.Kind(),
		Detail:       ie.Detail,
		RecordedAt:   b.clock.Now(),
	}
	var err error
	if incident.SessionID, err = uuid.Parse(ie.SessionID); err != nil {
		return fmt.Errorf("incident session id: %w", err)
	}
	if incident.AssessmentID, err = uuid.Parse(ie.AssessmentID); err != nil {
		return fmt.Errorf("incident assessment id: %w", err)
	}

	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}
	return b.rdb.RPush(ctx, config.WorkerKey.IntegrityIncidentsQueue, data).Err()
}
