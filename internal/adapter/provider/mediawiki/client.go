// Package mediawiki fetches page wikitext and category listings from a
// MediaWiki query API.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// MaxBatchSize is the largest title list one query accepts.
const MaxBatchSize = config.MaxBatchSize

const maxBodyBytes = 32 << 20

// Client talks to one wiki's api.php. It never retries on its own; callers
// decide what to do with a TransportError.
type Client struct {
	apiURL     string
	userAgent  string
	httpClient *http.Client
	pacer      *pacer
	log        *slog.Logger
	now        func() time.Time
}

// NewClient creates a Client from the wiki config. MinInterval below the
// 400ms floor is raised to the floor.
func NewClient(cfg config.WikiConfig, logger *slog.Logger) *Client {
	interval := cfg.MinInterval
	if interval < config.MinRequestInterval {
		interval = config.MinRequestInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     cfg.APIURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		pacer:      newPacer(interval),
		log:        logger.With("adapter", "mediawiki"),
		now:        time.Now,
	}
}

type queryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Normalized      []titleMapping `json:"normalized"`
		Redirects       []titleMapping `json:"redirects"`
		Pages           []apiPage      `json:"pages"`
		CategoryMembers []apiMember    `json:"categorymembers"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type titleMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type apiPage struct {
	PageID    int           `json:"pageid"`
	Title     string        `json:"title"`
	Missing   bool          `json:"missing"`
	Invalid   bool          `json:"invalid"`
	Revisions []apiRevision `json:"revisions"`
}

type apiRevision struct {
	Content string `json:"content"`
	Slots   struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

func (r apiRevision) text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Slots.Main.Content
}

type apiMember struct {
	PageID int    `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// query performs one paced GET against api.php. Network failures, 429 and
// 5xx responses, and unreadable bodies come back as *domain.TransportError.
func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	if err := c.pacer.wait(ctx); err != nil {
		return nil, err
	}

	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	reqURL := c.apiURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mediawiki: create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &domain.TransportError{Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mediawiki: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	var out queryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("decode json: %w", err)}
	}
	if out.Error != nil {
		return nil, fmt.Errorf("mediawiki: api error %s: %s", out.Error.Code, out.Error.Info)
	}
	return &out, nil
}
