package polymarket

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/whalewatch/internal/config"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/ratelimit"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// Client fetches recent trades from the Polymarket data API
type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a new data API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.PolymarketAPIBaseURL, "/"),
		limit:      cfg.PolymarketTradesLimit,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		limiter:    ratelimit.New(cfg.SourceRPS),
	}
}

// Name identifies the venue
func (c *Client) Name() trade.Source {
	return trade.SourcePolymarket
}

// FetchLatestTrades returns the most recent trades, newest first
func (c *Client) FetchLatestTrades(ctx context.Context) ([]trade.Trade, error) {
	start := time.Now()
	trades, err := c.fetch(ctx)
	metrics.RecordFetch(string(trade.SourcePolymarket), time.Since(start), err)
	return trades, err
}

func (c *Client) fetch(ctx context.Context) ([]trade.Trade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/trades")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	if c.limit > 0 {
		q.Set("limit", strconv.Itoa(c.limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var rows []apiTrade
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	trades := make([]trade.Trade, 0, len(rows))
	for i := range rows {
		trades = append(trades, normalize(&rows[i]))
	}

	// The API already orders newest first; sorting keeps that a guarantee
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].OccurredAt.After(trades[j].OccurredAt)
	})

	return trades, nil
}

func normalize(t *apiTrade) trade.Trade {
	side := trade.Side(strings.ToUpper(strings.TrimSpace(t.Side)))

	return trade.Trade{
		ID:           tradeID(t),
		Source:       trade.SourcePolymarket,
		MarketKey:    t.ConditionID,
		Side:         side,
		UnitPrice:    t.Price,
		Quantity:     t.Size,
		OccurredAt:   time.Unix(t.Timestamp, 0).UTC(),
		ActorID:      t.ProxyWallet,
		MarketLabel:  t.Title,
		OutcomeLabel: t.Outcome,
		VenueSide:    string(side),
		Exit:         side == trade.SideSell,
	}
}

// tradeID combines the transaction hash with asset and side, since one
// transaction can fill several outcomes. Without a hash the id is derived
// from the fill itself.
func tradeID(t *apiTrade) string {
	if t.TransactionHash != "" {
		return fmt.Sprintf("%s:%s:%s", t.TransactionHash, t.Asset, strings.ToUpper(t.Side))
	}

	data := fmt.Sprintf("%s:%s:%d:%.6f:%.6f",
		t.ProxyWallet,
		t.ConditionID,
		t.Timestamp,
		t.Size,
		t.Price,
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
