package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// SyncMetrics records one observation per listings sync.
// Optional: a nil SyncMetrics disables recording.
type SyncMetrics interface {
	// RecordSync records how a sync ended, how long it took and how many
	// listings were reconciled (zero when nothing was written).
	RecordSync(ctx context.Context, outcome domain.SyncOutcome, duration time.Duration, records int)
}
