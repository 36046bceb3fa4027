// Package mcptools exposes the OpenDTU operations as MCP tools and
// renders their result envelopes for the assistant.
package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/solarhook/opendtu-mcp/internal/domain"
	"github.com/solarhook/opendtu-mcp/internal/usecase"
)

// ServerInstructions is passed to the MCP server so assistants prefer
// non-persistent limits by default.
const ServerInstructions = "This server queries and sets inverter power limits " +
	"through an OpenDTU instance. Write operations require authentication. " +
	"Always prefer non-persistent (temporary) limits to spare the inverters' " +
	"EEPROM."

// Tools bundles the three tool handlers and their dependencies.
type Tools struct {
	list   *usecase.ListInvertersUseCase
	status *usecase.LimitStatusUseCase
	set    *usecase.SetLimitUseCase
	logger *slog.Logger
}

// New creates the tool set.
func New(
	list *usecase.ListInvertersUseCase,
	status *usecase.LimitStatusUseCase,
	set *usecase.SetLimitUseCase,
	logger *slog.Logger,
) *Tools {
	return &Tools{
		list:   list,
		status: status,
		set:    set,
		logger: logger.With("component", "mcptools"),
	}
}

// Register adds the three OpenDTU tools to the MCP server.
func (t *Tools) Register(srv *server.MCPServer) {
	srv.AddTool(getInvertersTool(), t.handleGetInverters)
	srv.AddTool(getLimitStatusTool(), t.handleGetLimitStatus)
	srv.AddTool(setLimitTool(), t.handleSetLimit)
	t.logger.Info("tools registered", slog.Int("count", 3))
}

func getInvertersTool() mcp.Tool {
	return mcp.NewTool(usecase.ToolGetInverters,
		mcp.WithDescription("List all inverters configured in OpenDTU with live data: "+
			"serial, name, reachability, current power production and the configured limit."),
		mcp.WithTitleAnnotation("List inverters"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func getLimitStatusTool() mcp.Tool {
	return mcp.NewTool(usecase.ToolGetLimitStatus,
		mcp.WithDescription("Query the current power limit of all inverters or of one "+
			"specific inverter: relative limit, rated power and the status of the last "+
			"limit change (Ok, Pending or Failure)."),
		mcp.WithString("serial",
			mcp.Description("Inverter serial number (e.g. '114181800001'). "+
				"Omit to return all inverters."),
		),
		mcp.WithTitleAnnotation("Query limit status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func setLimitTool() mcp.Tool {
	return mcp.NewTool(usecase.ToolSetLimit,
		mcp.WithDescription("Set the power limit of an inverter. Defaults to a temporary "+
			"(non-persistent) relative limit. Prefer limit_type 0 or 1: persistent limits "+
			"write the inverter EEPROM, which has a bounded write-cycle lifetime."),
		mcp.WithString("serial",
			mcp.Required(),
			mcp.Description("Inverter serial number (e.g. '114181800001')."),
		),
		mcp.WithNumber("limit_value",
			mcp.Required(),
			mcp.Min(0),
			mcp.Max(100000),
			mcp.Description("Limit value: watts for absolute limits, percent 0-100 for "+
				"relative limits. Example: 300 for 300 W, or 50 for 50 %."),
		),
		mcp.WithNumber("limit_type",
			mcp.DefaultNumber(float64(domain.DefaultLimitType)),
			mcp.Description("Limit type: 0 = absolute, temporary (W) | "+
				"1 = relative, temporary (%) - default | "+
				"256 = absolute, persistent (W, writes EEPROM!) | "+
				"257 = relative, persistent (%, writes EEPROM!)"),
		),
		mcp.WithTitleAnnotation("Set inverter limit"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func (t *Tools) handleGetInverters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.list.Execute(ctx)
	if !res.OK {
		return errorResult(res), nil
	}
	data, ok := res.Data.(domain.LiveData)
	if !ok {
		return mcp.NewToolResultError("unexpected result shape for live data"), nil
	}
	return mcp.NewToolResultText(renderLiveData(data)), nil
}

func (t *Tools) handleGetLimitStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serial := strings.TrimSpace(req.GetString("serial", ""))
	res := t.status.Execute(ctx, serial)
	if !res.OK {
		return errorResult(res), nil
	}
	statuses, ok := res.Data.(map[string]domain.LimitStatus)
	if !ok {
		return mcp.NewToolResultError("unexpected result shape for limit status"), nil
	}
	return mcp.NewToolResultText(renderLimitStatus(serial, statuses)), nil
}

func (t *Tools) handleSetLimit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serial, err := req.RequireString("serial")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Assistants occasionally quote serials with surrounding whitespace.
	serial = strings.TrimSpace(serial)
	value, err := req.RequireFloat("limit_value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limitType := req.GetInt("limit_type", int(domain.DefaultLimitType))

	res := t.set.Execute(ctx, serial, value, limitType)
	if !res.OK {
		return errorResult(res), nil
	}
	data, ok := res.Data.(usecase.SetLimitData)
	if !ok {
		return mcp.NewToolResultError("unexpected result shape for set limit"), nil
	}
	return mcp.NewToolResultText(renderSetLimit(data)), nil
}

// errorResult converts a failed envelope into an MCP error result. The
// handler never returns a Go error: every failure reaches the assistant
// as a structured tool result.
func errorResult(res usecase.Result) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", res.Error.Kind, res.Error.Message))
}
