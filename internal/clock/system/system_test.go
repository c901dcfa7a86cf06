package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pagescrape/internal/scrape"
)

var _ scrape.Clock = New()

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "got %v", got)
}

func TestClockFormatsAsISO(t *testing.T) {
	t.Parallel()

	ts := scrape.FormatTimestamp(New().Now())
	_, err := time.Parse(scrape.TimestampLayout, ts)
	require.NoError(t, err)
}
