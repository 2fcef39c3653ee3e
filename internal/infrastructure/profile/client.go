package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/clearbid/auction-engine/internal/domain/errors"
	"github.com/clearbid/auction-engine/internal/infrastructure/config"
)

// Client resolves display identity from the profile service. The engine
// only needs names for bid listings; lookups are read-only.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a profile client.
func NewClient(cfg *config.ProfileConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type profileResponse struct {
	DisplayName string `json:"display_name"`
}

// DisplayName returns the user's public display name.
func (c *Client) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	url := fmt.Sprintf("%s/v1/profiles/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.NewExternalError("profile", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.NewNotFoundError("profile")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewExternalError("profile",
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var pr profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("failed to decode profile response: %w", err)
	}
	return pr.DisplayName, nil
}
