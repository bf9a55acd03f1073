// Package sender implements the HTTP reporter. It marshals a report payload
// to JSON and POSTs it to the collection endpoint. Every failure is folded
// into a ReportOutcome so the report loop never has to handle errors; the
// next scheduled cycle is the only retry.
package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pinty-monitor/agent/internal/config"
	"github.com/pinty-monitor/agent/internal/models"
)

const (
	// defaultTimeout bounds one POST including reading the response.
	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of the response body is kept for logging.
	maxBodyBytes = 64 << 10

	userAgent = "pinty-agent"
)

// Sender delivers report payloads to the collection endpoint.
type Sender struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

// New creates a Sender for the configured endpoint. Certificate validation is
// disabled when cfg.InsecureSkipVerify is set.
func New(cfg config.ServerConfig, logger *zap.Logger) *Sender {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // endpoint is commonly served with a self-signed certificate
	}
	return &Sender{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		endpoint: cfg.URL,
		logger:   logger,
	}
}

// Send POSTs the payload and returns the response status and body.
// Marshal and transport failures are reported as status 500 with the error text.
func (s *Sender) Send(ctx context.Context, payload models.ReportPayload) models.ReportOutcome {
	data, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return failure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("Failed to read response body", zap.Error(err))
	}
	// Drain the remainder so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return models.ReportOutcome{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func failure(err error) models.ReportOutcome {
	return models.ReportOutcome{
		StatusCode: http.StatusInternalServerError,
		Body:       err.Error(),
	}
}
