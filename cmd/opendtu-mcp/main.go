package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/solarhook/opendtu-mcp/configs"
	"github.com/solarhook/opendtu-mcp/internal/adapter/inbound/adminhttp"
	"github.com/solarhook/opendtu-mcp/internal/adapter/inbound/mcptools"
	"github.com/solarhook/opendtu-mcp/internal/adapter/outbound/opendtu"
	"github.com/solarhook/opendtu-mcp/internal/usecase"
)

const (
	serverName    = "opendtu-mcp"
	serverVersion = "0.1.0"
)

func main() {
	var transport string
	flag.StringVar(&transport, "transport", "stdio", "Transport mode: stdio or sse")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// In stdio mode stdout belongs to the MCP protocol, so logs go to a
	// file instead.
	logLevel := cfg.ParsedLogLevel()
	var logger *slog.Logger
	if transport == "stdio" {
		logFile, err := os.OpenFile("/tmp/opendtu-mcp.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: logLevel}))
		} else {
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
		}
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}
	slog.SetDefault(logger)
	logger.Info("logger initialized",
		slog.String("level", logLevel.String()),
		slog.String("transport", transport),
		slog.String("appliance", cfg.BaseURL()))

	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("failed to initialize OpenTelemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("failed to shut down OpenTelemetry", slog.Any("error", err))
		}
	}()

	// Dependency wiring: one authenticated client, three usecases, three
	// tools.
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	client := opendtu.New(httpClient, cfg.Credentials(), logger,
		opendtu.WithRetryBackoff(cfg.RetryBackoff))

	listUC := usecase.NewListInvertersUseCase(client, logger)
	statusUC := usecase.NewLimitStatusUseCase(client, logger)
	setUC := usecase.NewSetLimitUseCase(client, logger)

	mcpSrv := mcpGoServer.NewMCPServer(
		serverName,
		serverVersion,
		mcpGoServer.WithInstructions(mcptools.ServerInstructions),
	)
	mcptools.New(listUC, statusUC, setUC, logger).Register(mcpSrv)

	switch transport {
	case "stdio":
		logger.Info("starting in stdio mode")
		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Error("stdio server error", slog.Any("error", err))
			os.Exit(1)
		}

	case "sse":
		logger.Info("starting in SSE mode")
		sseServer := mcpGoServer.NewSSEServer(mcpSrv,
			mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))

		adminMux := http.NewServeMux()
		adminhttp.NewHandlers(client, logger).RegisterRoutes(adminMux)
		adminServer := &http.Server{
			Addr:    cfg.AdminAddr,
			Handler: adminMux,
		}
		go func() {
			logger.Info("admin HTTP server starting", slog.String("address", adminServer.Addr))
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin HTTP server failed", slog.Any("error", err))
			}
		}()

		go func() {
			logger.Info("MCP SSE server starting", slog.String("address", cfg.ListenAddr))
			if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("MCP SSE server failed", slog.Any("error", err))
				stop()
			}
		}()

		<-ctx.Done()

		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin HTTP server shutdown failed", slog.Any("error", err))
		}
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP SSE server shutdown failed", slog.Any("error", err))
		}
		logger.Info("servers shut down gracefully")

	default:
		logger.Error("invalid transport mode", slog.String("transport", transport))
		os.Exit(1)
	}
}

// initOtelProvider sets up the OTLP trace exporter when an endpoint is
// configured, and returns a shutdown function for process exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("using insecure connection for OTLP exporter")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serverName),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
