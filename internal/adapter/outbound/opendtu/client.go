// Package opendtu implements the outbound HTTP client for the OpenDTU
// appliance REST API.
package opendtu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solarhook/opendtu-mcp/internal/domain"
	"github.com/solarhook/opendtu-mcp/internal/metrics"
)

const (
	liveDataPath    = "/api/livedata/status"
	limitStatusPath = "/api/limit/status"
	limitConfigPath = "/api/limit/config"

	// One bounded retry for reads; writes are never retried because a
	// limit write has a physical side effect.
	maxReadAttempts     = 2
	defaultRetryBackoff = 500 * time.Millisecond

	// Cap on appliance error text carried into error messages.
	maxErrorBodyLen = 200
)

// Client is the authenticated HTTP client bound to one appliance. It
// exclusively owns the Credentials; all other values it returns are
// snapshots with no shared mutable state.
type Client struct {
	httpClient   *http.Client
	creds        domain.Credentials
	logger       *slog.Logger
	tracer       trace.Tracer
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRetryBackoff overrides the fixed wait before the single read retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) { c.retryBackoff = d }
}

// New creates a Client for the given appliance. creds.Host must be a
// normalized base URL (see configs.Config.Credentials). A nil httpClient
// falls back to http.DefaultClient.
func New(httpClient *http.Client, creds domain.Credentials, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient:   httpClient,
		creds:        creds,
		logger:       logger.With("component", "opendtu_client"),
		tracer:       otel.Tracer("opendtu-client"),
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetLiveData fetches the live per-inverter telemetry.
func (c *Client) GetLiveData(ctx context.Context) (domain.LiveData, error) {
	ctx, span := c.tracer.Start(ctx, "opendtu.GetLiveData")
	defer span.End()

	var resp liveDataResponse
	if err := c.getJSON(ctx, liveDataPath, &resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.LiveData{}, err
	}
	data := resp.toDomain()
	span.SetAttributes(attribute.Int("opendtu.inverters", len(data.Inverters)))
	return data, nil
}

// GetLimitStatus fetches the current limit of every inverter. When serial
// is non-empty the result is filtered to that entry; an unknown serial
// yields an empty map, not an error.
func (c *Client) GetLimitStatus(ctx context.Context, serial string) (map[string]domain.LimitStatus, error) {
	ctx, span := c.tracer.Start(ctx, "opendtu.GetLimitStatus")
	defer span.End()

	var resp map[string]limitStatusEntry
	if err := c.getJSON(ctx, limitStatusPath, &resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make(map[string]domain.LimitStatus)
	if serial != "" {
		if entry, ok := resp[serial]; ok {
			out[serial] = entry.toDomain(serial)
		} else {
			c.logger.Debug("serial not found in limit status",
				slog.String("serial", serial),
				slog.Int("known", len(resp)))
		}
		return out, nil
	}
	for s, entry := range resp {
		out[s] = entry.toDomain(s)
	}
	return out, nil
}

// SetLimit submits a validated limit command. The appliance reports
// success or failure in the response body even on HTTP 200, so the body's
// status field decides the outcome. Never retried: a duplicate write for
// a persistent limit would cost an extra EEPROM cycle.
func (c *Client) SetLimit(ctx context.Context, cmd domain.LimitCommand) (domain.SetLimitOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "opendtu.SetLimit",
		trace.WithAttributes(
			attribute.String("opendtu.serial", cmd.Serial),
			attribute.Int("opendtu.limit_type", int(cmd.Type)),
		))
	defer span.End()

	payload, err := json.Marshal(limitConfigRequest{
		Serial:     cmd.Serial,
		LimitType:  int(cmd.Type),
		LimitValue: cmd.Value,
	})
	if err != nil {
		return domain.SetLimitOutcome{}, fmt.Errorf("marshal limit command: %w", err)
	}

	form := url.Values{"data": {string(payload)}}
	var resp limitConfigResponse
	if err := c.do(ctx, http.MethodPost, limitConfigPath, strings.NewReader(form.Encode()), &resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.SetLimitOutcome{}, err
	}

	if !strings.EqualFold(resp.Type, "success") {
		err := &domain.ApplianceRejectedError{Status: resp.Type, Message: resp.Message}
		c.logger.Warn("appliance rejected limit command",
			slog.String("serial", cmd.Serial),
			slog.String("status", resp.Type),
			slog.String("message", resp.Message))
		metrics.ApplianceRequests.WithLabelValues(limitConfigPath, "rejected").Inc()
		span.SetStatus(codes.Error, err.Error())
		return domain.SetLimitOutcome{}, err
	}

	metrics.ApplianceRequests.WithLabelValues(limitConfigPath, "ok").Inc()
	return domain.SetLimitOutcome{
		Serial:  cmd.Serial,
		Applied: cmd.Value,
		Type:    cmd.Type,
		Message: resp.Message,
	}, nil
}

// getJSON issues an authenticated GET with at most one retry on transport
// failure, with a short fixed backoff between attempts.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying read after transport failure", slog.String("path", path))
			select {
			case <-ctx.Done():
				return &domain.ApplianceUnreachableError{Host: c.creds.Host, Err: ctx.Err()}
			case <-time.After(c.retryBackoff):
			}
		}
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			metrics.ApplianceRequests.WithLabelValues(path, "ok").Inc()
			return nil
		}
		var unreachable *domain.ApplianceUnreachableError
		if !errors.As(err, &unreachable) {
			// Auth and appliance-level failures are never retried.
			return err
		}
		lastErr = err
	}
	metrics.ApplianceRequests.WithLabelValues(path, "unreachable").Inc()
	return lastErr
}

// do executes a single authenticated request and decodes the JSON
// response into out. Status-code mapping:
//
//	401/403        -> AuthenticationError
//	other non-2xx  -> ApplianceRejectedError
//	transport/ctx  -> ApplianceUnreachableError
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.creds.Host+path, body)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ApplianceRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("appliance request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return &domain.ApplianceUnreachableError{Host: c.creds.Host, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ApplianceUnreachableError{Host: c.creds.Host, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		metrics.ApplianceRequests.WithLabelValues(path, "auth").Inc()
		return &domain.AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    "check OPENDTU_USER and OPENDTU_PASSWORD",
		}
	case resp.StatusCode == http.StatusForbidden:
		metrics.ApplianceRequests.WithLabelValues(path, "auth").Inc()
		return &domain.AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    "access denied, read-only mode active or missing permissions",
		}
	case resp.StatusCode == http.StatusNotFound:
		metrics.ApplianceRequests.WithLabelValues(path, "rejected").Inc()
		return &domain.ApplianceRejectedError{
			Status:  resp.Status,
			Message: "endpoint not found, check the OpenDTU firmware version",
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.ApplianceRequests.WithLabelValues(path, "rejected").Inc()
		return &domain.ApplianceRejectedError{
			Status:  resp.Status,
			Message: truncate(string(respBody), maxErrorBodyLen),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a multi-byte
// rune. Appliance error bodies can carry non-ASCII text.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
