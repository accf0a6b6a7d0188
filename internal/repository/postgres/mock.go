package postgres

import (
	"context"
	"time"

	"github.com/krishisakhi/backend/internal/domain"
)

// MockRepository implements domain.DataRepository for testing/demo
// mode. The engine is fully in-memory; persistence is only an audit
// trail, so no-ops are a complete implementation.
type MockRepository struct{}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveTwinSnapshot is a no-op in mock mode
func (r *MockRepository) SaveTwinSnapshot(ctx context.Context, twin domain.CropTwin) error {
	return nil
}

// SaveAlertLog is a no-op in mock mode
func (r *MockRepository) SaveAlertLog(ctx context.Context, twinID string, alerts []domain.ProactiveAlert) error {
	return nil
}

// SaveGlobalModel is a no-op in mock mode
func (r *MockRepository) SaveGlobalModel(ctx context.Context, model domain.GlobalModel) error {
	return nil
}

// GetTwinSnapshots returns no history in mock mode
func (r *MockRepository) GetTwinSnapshots(ctx context.Context, twinID string, from, to time.Time) ([]domain.CropTwin, error) {
	return nil, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
