// Package board talks to the external task-board API used to triage incoming
// scan work. It is a thin collaborator: one poll call, no retries; failures
// surface to the caller and never touch scan results.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gdprscanner/gdprscan/internal/logging"
)

// DefaultAPIBase is the hosted board API root.
const DefaultAPIBase = "https://api.trello.com"

var ErrNotConfigured = errors.New("board: credentials not configured")

// Config carries board API credentials and the watched list.
type Config struct {
	// APIBase overrides the board API root; empty uses DefaultAPIBase.
	APIBase string `yaml:"api_base"`

	// APIKey and Token authenticate requests.
	APIKey string `yaml:"api_key"`
	Token  string `yaml:"token"`

	// ListID is the incoming-work list to poll.
	ListID string `yaml:"list_id"`
}

// Card is one board card in the watched list.
type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client polls the board API.
type Client struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewClient creates a board client. A nil logger falls back to stdout.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("board")
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// ListCards fetches the cards currently in the configured incoming list.
func (c *Client) ListCards(ctx context.Context) ([]Card, error) {
	if c.cfg.APIKey == "" || c.cfg.Token == "" || c.cfg.ListID == "" {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/1/lists/%s/cards?key=%s&token=%s",
		c.cfg.APIBase, url.PathEscape(c.cfg.ListID),
		url.QueryEscape(c.cfg.APIKey), url.QueryEscape(c.cfg.Token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("board: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("board: list cards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board: list cards: unexpected status %d", resp.StatusCode)
	}

	var raw []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ShortURL string `json:"shortUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("board: decode cards: %w", err)
	}

	cards := make([]Card, 0, len(raw))
	for _, r := range raw {
		cards = append(cards, Card{ID: r.ID, Name: r.Name, URL: r.ShortURL})
	}

	c.logger.Debug("listed board cards",
		logging.Field{Key: "list_id", Value: c.cfg.ListID},
		logging.Field{Key: "count", Value: len(cards)})

	return cards, nil
}
