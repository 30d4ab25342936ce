package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

const (
	CertificatePollTimeout = 1 * time.Second
	MaxCertificateAttempts = 5

	requeueTimeout = 2 * time.Second
)

// CertificateStore records issued certificate links.
type CertificateStore interface {
	SetCertificateURL(ctx context.Context, id uuid.UUID, url string) error
}

// CertificateWorker consumes certificate_requests_queue, asks the certificate
// service to issue a certificate and stores the returned link on the session.
type CertificateWorker struct {
	store      CertificateStore
	rdb        *redis.Client
	client     *http.Client
	endpoint   string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewCertificateWorker creates a new CertificateWorker posting to endpoint.
func NewCertificateWorker(store CertificateStore, rdb *redis.Client, endpoint string, timeout time.Duration, log zerolog.Logger) *CertificateWorker {
	return &CertificateWorker{
		store:      store,
		rdb:        rdb,
		client:     &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		retryDelay: 5 * time.Second,
		log:        log.With().Str("component", "certificate_worker").Logger(),
	}
}

type certificateResponse struct {
	CertificateURL string `json:"certificate_url"`
}

// Start begins the worker loop. Call in a goroutine.
// Unprocessed requests stay in Redis across restarts.
func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CertificateWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, CertificatePollTimeout, config.WorkerKey.CertificateRequestsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error, sleeping 3s")
			pause(ctx, 3*time.Second)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var req model.CertificateRequest
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed certificate request")
		return
	}

	url, err := w.issue(ctx, req.SessionID)
	if err == nil {
		err = w.store.SetCertificateURL(ctx, req.SessionID, url)
		if errors.Is(err, repository.ErrSessionNotFound) {
			w.log.Warn().Str("session_id", req.SessionID.String()).Msg("Session no longer eligible for a certificate, dropping")
			return
		}
	}
	if err != nil {
		w.retry(ctx, req, err)
		return
	}

	w.log.Info().Str("session_id", req.SessionID.String()).Msg("Certificate stored")
}

// issue calls the certificate service and returns the certificate link.
func (w *CertificateWorker) issue(ctx context.Context, sessionID uuid.UUID) (string, error) {
	body, err := json.Marshal(map[string]string{"session_id": sessionID.String()})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build certificate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call certificate service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("certificate service returned %d", resp.StatusCode)
	}

	var out certificateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode certificate response: %w", err)
	}
	if out.CertificateURL == "" {
		return "", errors.New("certificate service returned an empty url")
	}
	return out.CertificateURL, nil
}

func (w *CertificateWorker) retry(ctx context.Context, req model.CertificateRequest, cause error) {
	req.Attempt++
	logEvent := w.log.Error().Err(cause).Str("session_id", req.SessionID.String()).Int("attempt", req.Attempt)
	if req.Attempt >= MaxCertificateAttempts {
		logEvent.Msg("Certificate request failed permanently, dropping")
		return
	}

	// The request must survive a shutdown that interrupted the call.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	data, _ := json.Marshal(req)
	if err := w.rdb.RPush(pushCtx, config.WorkerKey.CertificateRequestsQueue, data).Err(); err != nil {
		w.log.Error().Err(err).Str("session_id", req.SessionID.String()).Msg("CRITICAL: Failed to requeue certificate request")
		return
	}
	logEvent.Msg("Certificate request failed, requeued")
	pause(ctx, w.retryDelay)
}
