package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/solarhook/opendtu-mcp/internal/domain"
)

// ToolSetLimit is the externally exposed name of the set-limit tool.
const ToolSetLimit = "opendtu_set_limit"

// SetLimitData is the envelope payload of a successful limit write.
type SetLimitData struct {
	Serial  string  `json:"serial"`
	Applied float64 `json:"applied"`
	Type    int     `json:"type"`
	// Message carries the appliance's response text verbatim.
	Message string `json:"message,omitempty"`
	// Warning is the advisory EEPROM note, set only for persistent types.
	Warning string `json:"warning,omitempty"`
}

// SetLimitUseCase serves the opendtu_set_limit tool. Validation happens
// before any network call; writes for the same serial are serialized so
// concurrent calls cannot interleave on the appliance's own limit state.
type SetLimitUseCase struct {
	client ApplianceClient
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSetLimitUseCase creates a SetLimitUseCase.
func NewSetLimitUseCase(client ApplianceClient, logger *slog.Logger) *SetLimitUseCase {
	return &SetLimitUseCase{
		client: client,
		logger: logger.With("usecase", "SetLimit"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// serialLock returns the mutex guarding limit writes for one serial.
func (uc *SetLimitUseCase) serialLock(serial string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	l, ok := uc.locks[serial]
	if !ok {
		l = &sync.Mutex{}
		uc.locks[serial] = l
	}
	return l
}

// Execute validates the request and, if it passes, submits exactly one
// limit write. On validation failure the appliance is never contacted.
func (uc *SetLimitUseCase) Execute(ctx context.Context, serial string, value float64, limitType int) Result {
	cmd, err := domain.ValidateLimit(serial, value, limitType)
	if err != nil {
		uc.logger.Warn("limit command rejected locally",
			slog.String("serial", serial),
			slog.Any("error", err))
		return errResult(ToolSetLimit, err)
	}

	lock := uc.serialLock(cmd.Serial)
	lock.Lock()
	defer lock.Unlock()

	outcome, err := uc.client.SetLimit(ctx, cmd)
	if err != nil {
		uc.logger.Warn("limit write failed",
			slog.String("serial", cmd.Serial),
			slog.Any("error", err))
		return errResult(ToolSetLimit, err)
	}

	uc.logger.Info("limit set",
		slog.String("serial", outcome.Serial),
		slog.Float64("applied", outcome.Applied),
		slog.Int("limit_type", int(outcome.Type)))

	data := SetLimitData{
		Serial:  outcome.Serial,
		Applied: outcome.Applied,
		Type:    int(outcome.Type),
		Message: outcome.Message,
	}
	if cmd.Type.Persistent() {
		data.Warning = domain.EEPROMWarning
	}
	return okResult(ToolSetLimit, data)
}
