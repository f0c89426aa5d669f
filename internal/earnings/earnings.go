// Package earnings provides a cached pre-earnings exclusion gate.
package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"options-engine/internal/store"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// CacheStore is the persistence surface the gate needs.
type CacheStore interface {
	CachedEarnings(ctx context.Context, symbol string, ttl time.Duration) (*store.EarningsEntry, error)
	CacheEarnings(ctx context.Context, symbol, earningsDate string) error
}

// Gate answers whether a symbol has earnings coming up. Lookups hit a TTL
// cache first and fall back to the calendar provider on miss or expiry.
// Any failure fails open: a provider outage must not halt otherwise-valid
// trading decisions.
type Gate struct {
	cache   CacheStore
	client  *http.Client
	apiKey  string
	baseURL string
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Gate. An empty apiKey disables provider lookups entirely
// (cache-only, failing open on miss).
func New(cache CacheStore, apiKey string, ttl time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		cache:   cache,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		ttl:     ttl,
		log:     log.With().Str("component", "earnings").Logger(),
		now:     time.Now,
	}
}

type calendarResponse struct {
	EarningsCalendar []struct {
		Symbol string `json:"symbol"`
		Date   string `json:"date"`
	} `json:"earningsCalendar"`
}

// IsNearEarnings reports whether the symbol has an earnings event within
// the next withinDays days.
func (g *Gate) IsNearEarnings(ctx context.Context, symbol string, withinDays int) bool {
	symbol = strings.ToUpper(symbol)

	if entry, err := g.cache.CachedEarnings(ctx, symbol, g.ttl); err == nil && entry != nil {
		return g.dateWithin(entry.EarningsDate, withinDays)
	} else if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Earnings cache read failed")
	}

	date, err := g.fetchEarningsDate(ctx, symbol, withinDays)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Earnings provider lookup failed, failing open")
		return false
	}

	if err := g.cache.CacheEarnings(ctx, symbol, date); err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Earnings cache write failed")
	}
	return g.dateWithin(date, withinDays)
}

// fetchEarningsDate queries the calendar provider for the symbol's next
// earnings date. An empty date with nil error means no upcoming earnings.
func (g *Gate) fetchEarningsDate(ctx context.Context, symbol string, withinDays int) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("no earnings provider api key configured")
	}

	horizon := withinDays
	if horizon < 30 {
		horizon = 30
	}
	now := g.now()
	q := url.Values{}
	q.Set("from", now.Format("2006-01-02"))
	q.Set("to", now.AddDate(0, 0, horizon).Format("2006-01-02"))
	q.Set("token", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/calendar/earnings?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("earnings provider returned status %d", resp.StatusCode)
	}

	var cal calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&cal); err != nil {
		return "", err
	}
	for _, event := range cal.EarningsCalendar {
		if strings.EqualFold(event.Symbol, symbol) {
			return event.Date, nil
		}
	}
	return "", nil
}

func (g *Gate) dateWithin(date string, withinDays int) bool {
	if date == "" {
		return false
	}
	dt, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	now := g.now()
	return !dt.Before(now.Truncate(24*time.Hour)) && !dt.After(now.AddDate(0, 0, withinDays))
}
