// Package pgclient holds the HTTP plumbing shared by the payment gateway
// clients: JSON round trips, transport error classification and the
// external request metrics.
package pgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const maxBody = 1 << 20

// Client posts JSON to one gateway and records every call as
// external_requests_total{peer,endpoint,outcome}.
type Client struct {
	peer    string
	baseURL string
	http    *http.Client
	log     observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func New(peer, baseURL string, hc *http.Client, tel observability.Observability) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}
	return &Client{
		peer:         peer,
		baseURL:      baseURL,
		http:         hc,
		log:          logger.With(observability.F("component", "pg_client"), observability.F("peer", peer)),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// HTTPError is a non-2xx gateway answer. Body holds the raw response for
// the provider specific code table.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gateway answered %d", e.Status)
}

// PostJSON sends body to path and decodes a 2xx answer into out. Transport
// failures come back as network payment errors; non-2xx answers as
// *HTTPError for the caller to map.
func (c *Client) PostJSON(ctx context.Context, endpoint, path string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pgclient: encode %s: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("pgclient: build %s: %w", endpoint, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	outcome := "success"
	defer func() { c.record(endpoint, outcome, start) }()

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "network_error"
		logctx.FromOr(ctx, c.log).Warn("pg_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("error", err.Error()),
		)
		return TransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		outcome = "network_error"
		return TransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "error"
		logctx.FromOr(ctx, c.log).Warn("pg_request_rejected",
			observability.F("endpoint", endpoint),
			observability.F("http_status", resp.StatusCode),
		)
		return &HTTPError{Status: resp.StatusCode, Body: raw}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		outcome = "error"
		return dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "unreadable gateway response", err).
			WithDetail("endpoint", endpoint)
	}
	return nil
}

func (c *Client) record(endpoint, outcome string, start time.Time) {
	c.extCounter.Add(1,
		observability.L("peer", c.peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	c.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", c.peer),
		observability.L("endpoint", endpoint),
	)
}

// TransportError classifies a failed round trip as timeout or network error.
func TransportError(err error) *dompay.Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return dompay.NewError(dompay.KindNetwork, dompay.CodeTimeout, "payment gateway timed out", err)
	}
	return dompay.NewError(dompay.KindNetwork, dompay.CodeNetwork, "payment gateway unreachable", err)
}

// NotConfigured is returned on the first call of a client without credentials.
func NotConfigured(provider string) *dompay.Error {
	return dompay.NewError(dompay.KindGateway, dompay.CodeNotConfigured, provider+" credentials are not configured", nil).
		WithDetail("provider", provider)
}

// Fallback maps an unlisted gateway error by its HTTP status.
func Fallback(status int, providerCode, message string) *dompay.Error {
	var pe *dompay.Error
	switch {
	case status >= 500:
		pe = dompay.NewError(dompay.KindGateway, dompay.CodeProviderUnavailable, "payment gateway failure", nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe = dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "payment gateway rejected credentials", nil)
	default:
		pe = dompay.NewError(dompay.KindUnknown, dompay.CodeUnknown, "unrecognised payment gateway error", nil)
	}
	return pe.WithDetail("providerCode", providerCode).
		WithDetail("providerMessage", message).
		WithDetail("httpStatus", status)
}
