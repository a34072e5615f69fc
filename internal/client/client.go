// Package client talks to the condo HTTP API on behalf of one actor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	actor   actor.Actor
	client  *http.Client
}

func New(baseURL string, a actor.Actor, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		actor:   a,
		client:  &http.Client{Timeout: timeout},
	}
}

// Header carries the actor identity. The websocket subscriber sends it on the upgrade.
func (c *Client) Header() http.Header {
	h := http.Header{}
	h.Set(actor.HeaderID, c.actor.ID.String())
	h.Set(actor.HeaderRole, string(c.actor.Role))

	return h
}

// WebsocketURL is the push endpoint of the same server.
func (c *Client) WebsocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	return u + "/ws"
}

func (c *Client) RequestAggregate(ctx context.Context, requestID uuid.UUID) (ledger.Aggregate, error) {
	var agg ledger.Aggregate
	if err := c.do(ctx, http.MethodGet, "/api/v1/requests/"+requestID.String()+"/aggregate", nil, &agg); err != nil {
		return ledger.Aggregate{}, err
	}

	return agg, nil
}

func (c *Client) ListRequests(ctx context.Context) ([]*ledger.Request, error) {
	var reqs []*ledger.Request
	if err := c.do(ctx, http.MethodGet, "/api/v1/requests", nil, &reqs); err != nil {
		return nil, err
	}

	return reqs, nil
}

type PaymentInput struct {
	PayerID     uuid.UUID          `json:"payer_id,omitzero"`
	UnitID      *uuid.UUID         `json:"unit_id,omitempty"`
	RequestID   *uuid.UUID         `json:"request_id,omitempty"`
	Amount      decimal.Decimal    `json:"amount"`
	Type        ledger.PaymentType `json:"type"`
	DueDate     time.Time          `json:"due_date"`
	Description string             `json:"description,omitempty"`
}

type paymentResult struct {
	Payment *ledger.Payment `json:"payment"`
	Request *ledger.Request `json:"request"`
}

func (c *Client) RecordPayment(ctx context.Context, in PaymentInput) (*ledger.Payment, error) {
	var res paymentResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments", in, &res); err != nil {
		return nil, err
	}

	return res.Payment, nil
}

func (c *Client) MarkPaid(ctx context.Context, paymentID uuid.UUID, method string) (*ledger.Payment, error) {
	var res paymentResult
	body := map[string]string{"method": method}

	if err := c.do(ctx, http.MethodPost, "/api/v1/payments/"+paymentID.String()+"/paid", body, &res); err != nil {
		return nil, err
	}

	return res.Payment, nil
}

type Building struct {
	ID    uuid.UUID              `json:"id"`
	Name  string                 `json:"name"`
	Stats property.BuildingStats `json:"stats"`
}

func (c *Client) ListBuildings(ctx context.Context) ([]Building, error) {
	var bs []Building
	if err := c.do(ctx, http.MethodGet, "/api/v1/buildings", nil, &bs); err != nil {
		return nil, err
	}

	return bs, nil
}

// ImportPayments uploads a rent roll.
func (c *Client) ImportPayments(ctx context.Context, filename string, r io.Reader) (lifecycle.ImportReport, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return lifecycle.ImportReport{}, fmt.Errorf("creating form file: %w", err)
	}

	if _, err := io.Copy(fw, r); err != nil {
		return lifecycle.ImportReport{}, fmt.Errorf("copying file: %w", err)
	}

	if err := mw.Close(); err != nil {
		return lifecycle.ImportReport{}, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/import", &buf)
	if err != nil {
		return lifecycle.ImportReport{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	var report lifecycle.ImportReport
	if err := c.send(req, &report); err != nil {
		return lifecycle.ImportReport{}, err
	}

	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	for k, v := range c.Header() {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
