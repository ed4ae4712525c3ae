package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type followingResponse struct {
	Fids []uint64 `json:"fids"`
}

type powerBadgeResponse struct {
	Fids []uint64 `json:"fids"`
}

// NewClient creates a social graph service client
func NewClient(cfg *config.GraphConfig, logger zerolog.Logger) deps.GraphClient {
	client := &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}

	logger.Info().
		Str("base_url", cfg.URL).
		Msg("Graph client initialized")

	return client
}

// GetFollowing returns the direct following set of a fid. Failures degrade
// to an empty set so feed queries never hard-fail on the graph service.
func (c *Client) GetFollowing(ctx context.Context, fid uint64) ([]uint64, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d/following", c.baseURL, fid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).
			Uint64("fid", fid).
			Msg("Failed to get following set, returning empty list")
		return []uint64{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Uint64("fid", fid).
			Msg("Unexpected status code from graph service")
		return []uint64{}, nil
	}

	var result followingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn().Err(err).
			Uint64("fid", fid).
			Msg("Failed to decode following response, returning empty list")
		return []uint64{}, nil
	}

	return result.Fids, nil
}

// GetMutes returns the caller's current mute lists. Never cached.
func (c *Client) GetMutes(ctx context.Context, fid uint64) (*dto.MuteContext, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d/mutes", c.baseURL, fid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).
			Uint64("fid", fid).
			Msg("Failed to get mutes, treating as empty")
		return &dto.MuteContext{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &dto.MuteContext{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Uint64("fid", fid).
			Msg("Unexpected status code from mutes endpoint")
		return &dto.MuteContext{}, nil
	}

	var result dto.MuteContext
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn().Err(err).
			Uint64("fid", fid).
			Msg("Failed to decode mutes response, treating as empty")
		return &dto.MuteContext{}, nil
	}

	return &result, nil
}

// GetPowerBadgeUsers returns the current power badge holder set
func (c *Client) GetPowerBadgeUsers(ctx context.Context) ([]uint64, error) {
	url := fmt.Sprintf("%s/api/v1/power-badge/users", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to get power badge users, returning empty list")
		return []uint64{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Msg("Unexpected status code from power badge endpoint")
		return []uint64{}, nil
	}

	var result powerBadgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to decode power badge response")
		return []uint64{}, nil
	}

	return result.Fids, nil
}
