package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type userDatasResponse struct {
	Users []dto.UserData `json:"users"`
}

// NewClient creates a hub content service client
func NewClient(cfg *config.HubConfig, logger zerolog.Logger) deps.HubClient {
	client := &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}

	logger.Info().
		Str("base_url", cfg.URL).
		Msg("Hub client initialized")

	return client
}

// GetCast fetches a cast payload by author fid and message hash. Failures
// are retryable: ancestor resolution must not silently produce partial
// topic sets.
func (c *Client) GetCast(ctx context.Context, fid uint64, hash string) (*dto.CastData, error) {
	url := fmt.Sprintf("%s/api/v1/casts/%d/%s", c.baseURL, fid, hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewRetryableError("hub request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.NewRetryableError(
			fmt.Sprintf("cast %d/%s not yet indexed", fid, hash), nil)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.NewRetryableError(
			fmt.Sprintf("hub returned status %d", resp.StatusCode), nil)
	}

	var cast dto.CastData
	if err := json.NewDecoder(resp.Body).Decode(&cast); err != nil {
		return nil, pkgerrors.NewRetryableError("failed to decode cast", err)
	}

	return &cast, nil
}

// GetUserDatas fetches profile projections, best effort. An error here never
// blocks ingestion; callers treat the result as enrichment only.
func (c *Client) GetUserDatas(ctx context.Context, fids []uint64) ([]dto.UserData, error) {
	if len(fids) == 0 {
		return nil, nil
	}

	parts := make([]string, len(fids))
	for i, fid := range fids {
		parts[i] = fmt.Sprintf("%d", fid)
	}
	url := fmt.Sprintf("%s/api/v1/users?fids=%s", c.baseURL, strings.Join(parts, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).
			Int("fids_count", len(fids)).
			Msg("Failed to fetch user datas, skipping enrichment")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Msg("Unexpected status code from hub user datas endpoint")
		return nil, nil
	}

	var result userDatasResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to decode user datas response")
		return nil, nil
	}

	return result.Users, nil
}
