package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assessment/internal/model"
)

var incidentColumns = []string{"session_id", "assessment_id", "candidate_key", "kind", "detail", "recorded_at"}

// IncidentRepository reads and writes the integrity incident log.
type IncidentRepository struct {
	db DBTX
}

// NewIncidentRepository creates a new IncidentRepository.
func NewIncidentRepository(db DBTX) *IncidentRepository {
	return &IncidentRepository{db: db}
}

func incidentDetail(inc *model.IntegrityIncident) ([]byte, error) {
	detail := inc.Detail
	if detail == nil {
		detail = map[string]string{}
	}
	return json.Marshal(detail)
}

// CopyIncidents bulk-loads a batch with COPY. Any failure rejects the whole batch.
func (r *IncidentRepository) CopyIncidents(ctx context.Context, batch []model.IntegrityIncident) (int64, error) {
	rows := make([][]any, 0, len(batch))
	for i := range batch {
		detail, err := incidentDetail(&batch[i])
		if err != nil {
			return 0, fmt.Errorf("encode incident detail: %w", err)
		}
		inc := batch[i]
		rows = append(rows, []any{
			inc.SessionID, inc.AssessmentID, inc.CandidateKey, inc.Kind, detail, inc.RecordedAt,
		})
	}

	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"integrity_incidents"}, incidentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy incidents: %w", err)
	}
	return n, nil
}

// InsertIncident writes a single incident.
func (r *IncidentRepository) InsertIncident(ctx context.Context, inc model.IntegrityIncident) error {
	detail, err := incidentDetail(&inc)
	if err != nil {
		return fmt.Errorf("encode incident detail: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO integrity_incidents (session_id, assessment_id, candidate_key, kind, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		inc.SessionID, inc.AssessmentID, inc.CandidateKey, inc.Kind, detail, inc.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// CountByAssessment returns incident counts per candidate key.
func (r *IncidentRepository) CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT candidate_key, COUNT(*)
		 FROM integrity_incidents
		 WHERE assessment_id = $1
		 GROUP BY candidate_key`,
		assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan incident count: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
