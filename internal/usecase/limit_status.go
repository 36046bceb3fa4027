package usecase

import (
	"context"
	"log/slog"
)

// ToolGetLimitStatus is the externally exposed name of the limit status
// tool.
const ToolGetLimitStatus = "opendtu_get_limit_status"

// LimitStatusUseCase serves the opendtu_get_limit_status tool.
type LimitStatusUseCase struct {
	client ApplianceClient
	logger *slog.Logger
}

// NewLimitStatusUseCase creates a LimitStatusUseCase.
func NewLimitStatusUseCase(client ApplianceClient, logger *slog.Logger) *LimitStatusUseCase {
	return &LimitStatusUseCase{
		client: client,
		logger: logger.With("usecase", "LimitStatus"),
	}
}

// Execute fetches the limit status, optionally filtered to one serial.
// An unknown serial is "no data" (ok with an empty map), not an error.
func (uc *LimitStatusUseCase) Execute(ctx context.Context, serial string) Result {
	statuses, err := uc.client.GetLimitStatus(ctx, serial)
	if err != nil {
		uc.logger.Warn("limit status fetch failed",
			slog.String("serial", serial),
			slog.Any("error", err))
		return errResult(ToolGetLimitStatus, err)
	}
	uc.logger.Info("limit status fetched",
		slog.String("serial", serial),
		slog.Int("entries", len(statuses)))
	return okResult(ToolGetLimitStatus, statuses)
}
