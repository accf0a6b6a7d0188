package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishisakhi/backend/internal/domain"
)

// PostgresRepository implements domain.DataRepository. Twin state is
// persisted as one JSON document per snapshot; the engine remains the
// source of truth and never reads these back on its hot path.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveTwinSnapshot persists one CropTwin document
func (r *PostgresRepository) SaveTwinSnapshot(ctx context.Context, twin domain.CropTwin) error {
	doc, err := json.Marshal(twin)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal twin snapshot: %w", err)
	}

	query := `
		INSERT INTO twin_snapshots (twin_id, farmer_id, crop_type, health_score, overall_risk, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		twin.ID, twin.FarmerID, string(twin.Crop.Type),
		twin.HealthScore, twin.Risk.Overall, doc, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save twin snapshot: %w", err)
	}
	return nil
}

// SaveAlertLog persists a generated alert batch
func (r *PostgresRepository) SaveAlertLog(ctx context.Context, twinID string, alerts []domain.ProactiveAlert) error {
	query := `
		INSERT INTO alert_log (twin_id, alert_id, alert_type, severity, title, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	for _, a := range alerts {
		var due interface{}
		if a.DueDate != nil {
			due = *a.DueDate
		}
		if _, err := r.pool.Exec(ctx, query,
			twinID, a.ID, string(a.Type), string(a.Severity), a.Title.EN, due, now,
		); err != nil {
			return fmt.Errorf("postgres: failed to save alert log: %w", err)
		}
	}
	return nil
}

// SaveGlobalModel upserts the federated aggregate state
func (r *PostgresRepository) SaveGlobalModel(ctx context.Context, model domain.GlobalModel) error {
	doc, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal global model: %w", err)
	}

	query := `
		INSERT INTO global_model (id, version, accuracy, document, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET version = $1, accuracy = $2, document = $3, updated_at = $4
	`
	if _, err := r.pool.Exec(ctx, query, model.Version, model.Accuracy, doc, time.Now()); err != nil {
		return fmt.Errorf("postgres: failed to save global model: %w", err)
	}
	return nil
}

// GetTwinSnapshots retrieves snapshot history for a twin
func (r *PostgresRepository) GetTwinSnapshots(ctx context.Context, twinID string, from, to time.Time) ([]domain.CropTwin, error) {
	query := `
		SELECT document
		FROM twin_snapshots
		WHERE twin_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT 100
	`
	rows, err := r.pool.Query(ctx, query, twinID, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query twin snapshots: %w", err)
	}
	defer rows.Close()

	var results []domain.CropTwin
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan snapshot row: %w", err)
		}
		var twin domain.CropTwin
		if err := json.Unmarshal(doc, &twin); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal snapshot: %w", err)
		}
		results = append(results, twin)
	}
	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
