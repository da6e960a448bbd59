package formats

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteich/elastic-status-history/history"
)

func feed(entries ...history.Entry) <-chan history.Entry {
	ch := make(chan history.Entry, len(entries))
	for _, e := range entries {
		ch <- e
	}
	close(ch)
	return ch
}

var sample = []history.Entry{
	{Timestamp: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), Status: "New"},
	{Timestamp: time.Date(2025, 4, 3, 15, 30, 0, 0, time.UTC), Status: "Trend\r\ning"},
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		new  func(buf *bytes.Buffer) Formatter
		want string
	}{
		{
			"csv with header",
			func(buf *bytes.Buffer) Formatter { return CSV{Outfile: buf, Header: true} },
			"timestamp,status\n" +
				"2025-04-01T10:00:00.000000000Z,New\n" +
				"2025-04-03T15:30:00.000000000Z,Trending\n",
		},
		{
			"csv without header",
			func(buf *bytes.Buffer) Formatter { return CSV{Outfile: buf} },
			"2025-04-01T10:00:00.000000000Z,New\n" +
				"2025-04-03T15:30:00.000000000Z,Trending\n",
		},
		{
			"json",
			func(buf *bytes.Buffer) Formatter { return JSON{Outfile: buf} },
			`{"timestamp":"2025-04-01T10:00:00.000000000Z","status":"New"}` + "\n" +
				`{"timestamp":"2025-04-03T15:30:00.000000000Z","status":"Trend\r\ning"}` + "\n",
		},
		{
			"raw",
			func(buf *bytes.Buffer) Formatter { return Raw{Outfile: buf} },
			"2025-04-01T10:00:00.000000000Z\tNew\n" +
				"2025-04-03T15:30:00.000000000Z\tTrend\r\ning\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.new(&buf).Run(context.Background(), feed(sample...)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestFormatterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := JSON{Outfile: &buf}.Run(ctx, make(chan history.Entry))
	assert.ErrorIs(t, err, context.Canceled)
}
