package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// Client talks to the Kalshi public trade API
type Client struct {
	baseURL    string
	limit      int
	apiKeyID   string
	httpClient *http.Client
	limiter    *ratelimit.Limiter

	mu     sync.RWMutex
	titles map[string]string
}

// NewClient creates a new Kalshi client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.KalshiAPIBaseURL, "/"),
		limit:      cfg.KalshiTradesLimit,
		apiKeyID:   cfg.KalshiAPIKeyID,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		limiter:    ratelimit.New(cfg.SourceRPS),
		titles:     make(map[string]string),
	}
}

// Name identifies the venue
func (c *Client) Name() trade.Source {
	return trade.SourceKalshi
}

// FetchLatestTrades returns the most recent trades, newest first
func (c *Client) FetchLatestTrades(ctx context.Context) ([]trade.Trade, error) {
	start := time.Now()
	trades, err := c.fetchTrades(ctx)
	metrics.RecordFetch(string(trade.SourceKalshi), time.Since(start), err)
	return trades, err
}

func (c *Client) fetchTrades(ctx context.Context) ([]trade.Trade, error) {
	u, err := url.Parse(c.baseURL + "/markets/trades")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	if c.limit > 0 {
		q.Set("limit", strconv.Itoa(c.limit))
	}
	u.RawQuery = q.Encode()

	var resp tradesResponse
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	trades := make([]trade.Trade, 0, len(resp.Trades))
	for i := range resp.Trades {
		trades = append(trades, normalize(&resp.Trades[i], fetchedAt))
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].OccurredAt.After(trades[j].OccurredAt)
	})

	return trades, nil
}

// Describe resolves a market ticker to its human title. Successful lookups
// are cached for the life of the client; failures are retried next time.
func (c *Client) Describe(ctx context.Context, ticker string) (string, bool) {
	if ticker == "" {
		return "", false
	}

	c.mu.RLock()
	title, ok := c.titles[ticker]
	c.mu.RUnlock()
	if ok {
		return title, true
	}

	var resp marketResponse
	if err := c.getJSON(ctx, c.baseURL+"/markets/"+url.PathEscape(ticker), &resp); err != nil {
		return "", false
	}

	title = strings.TrimSpace(resp.Market.Title)
	if title == "" {
		title = strings.TrimSpace(resp.Market.Subtitle)
	}
	if title == "" {
		return "", false
	}

	c.mu.Lock()
	c.titles[ticker] = title
	c.mu.Unlock()

	return title, true
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKeyID != "" {
		req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalize(t *apiTrade, fetchedAt time.Time) trade.Trade {
	var side trade.Side
	switch strings.ToLower(strings.TrimSpace(t.TakerSide)) {
	case "yes":
		side = trade.SideBuy
	case "no":
		// Taking NO opens a position, so the trade is never an exit
		side = trade.SideSell
	default:
		// Left invalid so Validate rejects it downstream
		side = trade.Side(strings.ToUpper(t.TakerSide))
	}

	occurred, err := time.Parse(time.RFC3339, t.CreatedTime)
	if err != nil {
		occurred = fetchedAt
	}

	return trade.Trade{
		ID:           t.TradeID,
		Source:       trade.SourceKalshi,
		MarketKey:    t.Ticker,
		Side:         side,
		UnitPrice:    trade.CentsToProbability(t.YesPrice),
		Quantity:     t.Count,
		OccurredAt:   occurred.UTC(),
		OutcomeLabel: DescribeTicker(t.Ticker, side),
		VenueSide:    strings.ToUpper(strings.TrimSpace(t.TakerSide)),
	}
}
