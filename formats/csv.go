package formats

import (
	"context"
	"encoding/csv"
	"io"
	"regexp"

	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/history"
)

var lineBreaks = regexp.MustCompile(`\x{000D}\x{000A}|[\x{000A}\x{000B}\x{000C}\x{000D}\x{0085}\x{2028}\x{2029}]`)

type CSV struct {
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
	// Header disables the timestamp,status header line when false.
	Header bool
}

func (c CSV) Run(ctx context.Context, entries <-chan history.Entry) error {
	w := csv.NewWriter(c.Outfile)

	if c.Header {
		if err := w.Write([]string{"timestamp", "status"}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.Flush()
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				w.Flush()
				return w.Error()
			}
			err := w.Write([]string{
				history.FormatTimestamp(entry.Timestamp),
				removeLBR(entry.Status),
			})
			if err != nil {
				return err
			}
			increment(c.ProgressBar)
		}
	}
}

func removeLBR(text string) string {
	return lineBreaks.ReplaceAllString(text, ``)
}
