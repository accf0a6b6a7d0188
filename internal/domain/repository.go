package domain

import (
	"context"
	"time"
)

// DataRepository defines the interface for optional snapshot persistence.
// This follows the Dependency Inversion Principle - domain defines the interface.
// The twin engine is fully functional against the no-op mock; persistence
// is an audit trail, never a source of truth.
type DataRepository interface {
	// SaveTwinSnapshot persists one CropTwin document
	SaveTwinSnapshot(ctx context.Context, twin CropTwin) error

	// SaveAlertLog persists a generated alert batch for a twin
	SaveAlertLog(ctx context.Context, twinID string, alerts []ProactiveAlert) error

	// SaveGlobalModel persists the federated aggregate state
	SaveGlobalModel(ctx context.Context, model GlobalModel) error

	// GetTwinSnapshots retrieves snapshot history for a twin
	GetTwinSnapshots(ctx context.Context, twinID string, from, to time.Time) ([]CropTwin, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
