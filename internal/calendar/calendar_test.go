package calendar

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func holidayFeed(t *testing.T, division string, dates ...string) *httptest.Server {
	t.Helper()
	events := make([]map[string]string, 0, len(dates))
	for _, d := range dates {
		events = append(events, map[string]string{"date": d})
	}
	body := map[string]any{division: map[string]any{"events": events}}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestAddWorkingDaysSkipsWeekend(t *testing.T) {
	cal := New(testLogger(), nil, "http://127.0.0.1:0", "england-and-wales", time.Hour)

	// Friday + 1 working day lands on Monday.
	friday := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	got, err := cal.AddWorkingDays(context.Background(), friday, 1)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestAddWorkingDaysZeroCount(t *testing.T) {
	cal := New(testLogger(), nil, "http://127.0.0.1:0", "england-and-wales", time.Hour)
	monday := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	got, err := cal.AddWorkingDays(context.Background(), monday, 0)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), got, "zero days truncates to the date")
}

func TestAddWorkingDaysSkipsBankHoliday(t *testing.T) {
	// 2024-08-26 was the August bank holiday (a Monday).
	feed := holidayFeed(t, "england-and-wales", "2024-08-26")
	defer feed.Close()

	cal := New(testLogger(), nil, feed.URL, "england-and-wales", time.Hour)
	friday := time.Date(2024, 8, 23, 0, 0, 0, 0, time.UTC)
	got, err := cal.AddWorkingDays(context.Background(), friday, 1)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 8, 27, 0, 0, 0, 0, time.UTC), got)
}

func TestBankHolidaysCachedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := holidayFeed(t, "england-and-wales", "2024-08-26")
	cal := New(testLogger(), client, feed.URL, "england-and-wales", time.Hour)

	_, err := cal.AddWorkingDays(context.Background(), time.Date(2024, 8, 23, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.True(t, mr.Exists(cacheKey), "feed result should be cached")

	// Even with the feed gone the cached holiday still applies.
	feed.Close()
	got, err := cal.AddWorkingDays(context.Background(), time.Date(2024, 8, 23, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 8, 27, 0, 0, 0, 0, time.UTC), got)
}

func TestFeedFailureFallsBackToWeekendsOnly(t *testing.T) {
	cal := New(testLogger(), nil, "http://127.0.0.1:0", "england-and-wales", time.Hour)
	monday := time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC)
	got, err := cal.AddWorkingDays(context.Background(), monday.AddDate(0, 0, -3), 1)
	require.NoError(t, err)
	require.Equal(t, monday, got, "without the feed the bank holiday counts as a working day")
}
