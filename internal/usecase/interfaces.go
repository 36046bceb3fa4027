package usecase

import (
	"context"

	"github.com/solarhook/opendtu-mcp/internal/domain"
)

// ApplianceClient is the outbound port to the OpenDTU REST API.
type ApplianceClient interface {
	// GetLiveData returns the live telemetry snapshot of all inverters.
	GetLiveData(ctx context.Context) (domain.LiveData, error)

	// GetLimitStatus returns the current limit per inverter, filtered to
	// one entry when serial is non-empty. An unknown serial yields an
	// empty map, not an error.
	GetLimitStatus(ctx context.Context, serial string) (map[string]domain.LimitStatus, error)

	// SetLimit submits a validated limit command. Implementations must
	// never retry it: a limit write has a physical side effect.
	SetLimit(ctx context.Context, cmd domain.LimitCommand) (domain.SetLimitOutcome, error)
}
