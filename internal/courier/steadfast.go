// Package courier pushes orders to the Steadfast courier API and maps its
// delivery-status callbacks back onto order statuses.
package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"baburchi-admin/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("courier credentials are not configured")
	ErrRejected      = errors.New("courier rejected the consignment")
)

// APIError carries the courier's raw answer for a failed request
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("courier responded %d: %s", e.StatusCode, e.Message)
}

// ConsignmentRequest is the body of POST /create_order
type ConsignmentRequest struct {
	Invoice          string `json:"invoice"`
	RecipientName    string `json:"recipient_name"`
	RecipientPhone   string `json:"recipient_phone"`
	RecipientAddress string `json:"recipient_address"`
	CODAmount        int64  `json:"cod_amount"`
	Note             string `json:"note,omitempty"`
	ItemDescription  string `json:"item_description,omitempty"`
}

// Consignment is the courier's record of a created parcel
type Consignment struct {
	ConsignmentID string `json:"consignment_id"`
	TrackingCode  string `json:"tracking_code"`
	Status        string `json:"status"`
}

type createOrderResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Consignment *struct {
		ConsignmentID json.Number `json:"consignment_id"`
		Invoice       string      `json:"invoice"`
		TrackingCode  string      `json:"tracking_code"`
		Status        string      `json:"status"`
	} `json:"consignment"`
	Errors map[string][]string `json:"errors"`
}

// Client creates consignments
type Client interface {
	CreateConsignment(ctx context.Context, cfg model.CourierConfig, req ConsignmentRequest) (*Consignment, error)
}

// Options tune the HTTP client and retry policy
type Options struct {
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
}

// SteadfastClient talks to the Steadfast REST API
type SteadfastClient struct {
	httpClient *http.Client
	opts       Options
	logger     *zap.Logger
}

func NewSteadfastClient(opts Options, logger *zap.Logger) *SteadfastClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	return &SteadfastClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		logger:     logger.Named("steadfast"),
	}
}

// CreateConsignment posts the order. Transport errors and 5xx answers are retried with
// exponential backoff; the invoice number makes a retried request idempotent on the courier side.
func (c *SteadfastClient) CreateConsignment(ctx context.Context, cfg model.CourierConfig, req ConsignmentRequest) (*Consignment, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(cfg.BaseURL, "/") + "/create_order"

	var result *Consignment
	attempt := 0
	op := func() error {
		attempt++
		consignment, err := c.post(ctx, cfg, url, body)
		if err != nil {
			c.logger.Warn("create_order attempt failed",
				zap.String("invoice", req.Invoice),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		result = consignment
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxElapsedTime = 2 * c.opts.Timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.opts.MaxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	c.logger.Info("consignment created",
		zap.String("invoice", req.Invoice),
		zap.String("consignment_id", result.ConsignmentID),
		zap.Int("attempts", attempt))
	return result, nil
}

func (c *SteadfastClient) post(ctx context.Context, cfg model.CourierConfig, url string, body []byte) (*Consignment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if cfg.APIKey != "" {
		httpReq.Header.Set("Api-Key", cfg.APIKey)
		httpReq.Header.Set("Secret-Key", cfg.SecretKey)
	} else {
		httpReq.SetBasicAuth(cfg.AccountEmail, cfg.AccountPassword)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode >= 300 {
		return nil, backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))})
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: unreadable response: %v", ErrRejected, err))
	}
	if parsed.Status != http.StatusOK || parsed.Consignment == nil || parsed.Consignment.ConsignmentID == "" {
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrRejected, msg))
	}

	return &Consignment{
		ConsignmentID: parsed.Consignment.ConsignmentID.String(),
		TrackingCode:  parsed.Consignment.TrackingCode,
		Status:        parsed.Consignment.Status,
	}, nil
}
