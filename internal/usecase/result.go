package usecase

import (
	"github.com/solarhook/opendtu-mcp/internal/domain"
	"github.com/solarhook/opendtu-mcp/internal/metrics"
)

// ToolError is the error half of the result envelope.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the uniform envelope every tool operation returns. Callers
// never see a raw error; every failure kind is translated here.
type Result struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ToolError `json:"error,omitempty"`
}

func okResult(tool string, data any) Result {
	metrics.ToolInvocations.WithLabelValues(tool, "ok").Inc()
	return Result{OK: true, Data: data}
}

func errResult(tool string, err error) Result {
	kind := domain.KindOf(err)
	metrics.ToolInvocations.WithLabelValues(tool, kind).Inc()
	return Result{OK: false, Error: &ToolError{Kind: kind, Message: err.Error()}}
}
