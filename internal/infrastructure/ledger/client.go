package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
)

// Client talks to the currency ledger service. Hold, release, and transfer
// are atomic at the ledger's boundary; the engine treats any failure here
// as a full rollback of the enclosing bid transaction.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a ledger client.
func NewClient(cfg *config.LedgerConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type holdRequest struct {
	Account uuid.UUID      `json:"account"`
	Amount  values.Credits `json:"amount"`
	Tag     string         `json:"tag"`
}

type holdResponse struct {
	HoldID uuid.UUID `json:"hold_id"`
}

type adjustRequest struct {
	Amount values.Credits `json:"amount"`
}

type transferRequest struct {
	Destination uuid.UUID `json:"destination"`
}

type balanceResponse struct {
	Available values.Credits `json:"available"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AvailableBalance returns the account's non-held balance.
func (c *Client) AvailableBalance(ctx context.Context, account uuid.UUID) (values.Credits, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/balance", account), nil, &resp); err != nil {
		return values.ZeroCredits(), err
	}
	return resp.Available, nil
}

// Hold places a hold for amount on the account, tagged with the auction id.
func (c *Client) Hold(ctx context.Context, account uuid.UUID, amount values.Credits, tag string) (uuid.UUID, error) {
	var resp holdResponse
	req := holdRequest{Account: account, Amount: amount, Tag: tag}
	if err := c.do(ctx, http.MethodPost, "/v1/holds", req, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.HoldID, nil
}

// AdjustHold changes the held amount in place. Used when the current
// leader raises their own position, instead of release-then-rehold.
func (c *Client) AdjustHold(ctx context.Context, holdID uuid.UUID, amount values.Credits) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/holds/%s", holdID), adjustRequest{Amount: amount}, nil)
}

// Release frees a hold; the funds become available to the bidder again.
func (c *Client) Release(ctx context.Context, holdID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/holds/%s", holdID), nil, nil)
}

// TransferFromHold converts a hold into a finalized transfer to the
// destination account. Terminal: the hold no longer exists afterwards.
func (c *Client) TransferFromHold(ctx context.Context, holdID uuid.UUID, destination uuid.UUID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/holds/%s/transfer", holdID), transferRequest{Destination: destination}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode ledger request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewExternalError("ledger", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Code == "insufficient_funds" {
			return errors.NewInsufficientFundsError(errResp.Message)
		}
		c.logger.Error("ledger call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", errResp.Code))
		return errors.NewExternalError("ledger",
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode ledger response: %w", err)
		}
	}
	return nil
}
