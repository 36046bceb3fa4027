package usecase

import (
	"context"
	"log/slog"
)

// ToolGetInverters is the externally exposed name of the inverter
// overview tool.
const ToolGetInverters = "opendtu_get_inverters"

// ListInvertersUseCase serves the opendtu_get_inverters tool: one fresh
// livedata fetch per call, no cached state.
type ListInvertersUseCase struct {
	client ApplianceClient
	logger *slog.Logger
}

// NewListInvertersUseCase creates a ListInvertersUseCase.
func NewListInvertersUseCase(client ApplianceClient, logger *slog.Logger) *ListInvertersUseCase {
	return &ListInvertersUseCase{
		client: client,
		logger: logger.With("usecase", "ListInverters"),
	}
}

// Execute fetches live data and shapes it into the result envelope. An
// unreachable appliance becomes a structured failure, never a crash.
func (uc *ListInvertersUseCase) Execute(ctx context.Context) Result {
	data, err := uc.client.GetLiveData(ctx)
	if err != nil {
		uc.logger.Warn("live data fetch failed", slog.Any("error", err))
		return errResult(ToolGetInverters, err)
	}
	uc.logger.Info("live data fetched", slog.Int("inverters", len(data.Inverters)))
	return okResult(ToolGetInverters, data)
}
