// Package calendar provides working-day date arithmetic. Working days
// exclude weekends and bank holidays; holidays come from a JSON feed
// (gov.uk format) cached in Redis.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "calendar:bank-holidays"

// DateOnly truncates t to a UTC calendar date. All lifecycle dates are
// compared at day precision, so every date entering the domain goes
// through here first.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Calendar answers working-day questions. A nil holiday source (feed
// unreachable, cache empty) degrades to weekend-only arithmetic.
type Calendar struct {
	logger   *slog.Logger
	client   *http.Client
	redis    *redis.Client
	feedURL  string
	division string
	ttl      time.Duration
}

// New constructs a Calendar. redisClient may be nil, in which case the
// feed is fetched on every holiday lookup.
func New(logger *slog.Logger, redisClient *redis.Client, feedURL, division string, ttl time.Duration) *Calendar {
	return &Calendar{
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		redis:    redisClient,
		feedURL:  feedURL,
		division: division,
		ttl:      ttl,
	}
}

type feedEvent struct {
	Date string `json:"date"`
}

type feedDivision struct {
	Events []feedEvent `json:"events"`
}

// AddWorkingDays returns the date reached by advancing count working
// days from the given date. Zero count returns the date unchanged.
func (c *Calendar) AddWorkingDays(ctx context.Context, from time.Time, count int) (time.Time, error) {
	from = DateOnly(from)
	if count <= 0 {
		return from, nil
	}
	holidays := c.bankHolidays(ctx)
	d := from
	for remaining := count; remaining > 0; {
		d = d.AddDate(0, 0, 1)
		if isWorkingDay(d, holidays) {
			remaining--
		}
	}
	return d, nil
}

func isWorkingDay(d time.Time, holidays map[string]struct{}) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	_, holiday := holidays[d.Format("2006-01-02")]
	return !holiday
}

// bankHolidays returns the holiday set, preferring the Redis cache.
// Failures are logged and produce an empty set rather than an error;
// being wrong by a holiday is preferable to blocking archive decisions
// on feed availability.
func (c *Calendar) bankHolidays(ctx context.Context) map[string]struct{} {
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var dates []string
			if err := json.Unmarshal(raw, &dates); err == nil {
				return toSet(dates)
			}
		} else if err != redis.Nil {
			c.logger.Warn("bank holiday cache read", slog.Any("error", err))
		}
	}

	dates, err := c.fetchFeed(ctx)
	if err != nil {
		c.logger.Warn("bank holiday feed fetch, falling back to weekends only", slog.Any("error", err))
		return map[string]struct{}{}
	}

	if c.redis != nil {
		if raw, err := json.Marshal(dates); err == nil {
			if err := c.redis.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("bank holiday cache write", slog.Any("error", err))
			}
		}
	}
	return toSet(dates)
}

func (c *Calendar) fetchFeed(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: feed status %d", resp.StatusCode)
	}

	var divisions map[string]feedDivision
	if err := json.NewDecoder(resp.Body).Decode(&divisions); err != nil {
		return nil, err
	}
	division, ok := divisions[c.division]
	if !ok {
		return nil, fmt.Errorf("calendar: division %q missing from feed", c.division)
	}
	dates := make([]string, 0, len(division.Events))
	for _, ev := range division.Events {
		dates = append(dates, ev.Date)
	}
	return dates, nil
}

func toSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}
