package driving

import (
	"context"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// Scheduler manages background tasks like the periodic listings refresh.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunNow executes a task immediately and returns its recorded result.
	RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error)
}
