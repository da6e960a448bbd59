package formats

import (
	"context"
	"encoding/json"
	"io"

	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/history"
)

// JSON writes one object per line.
type JSON struct {
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
}

func (j JSON) Run(ctx context.Context, entries <-chan history.Entry) error {
	enc := json.NewEncoder(j.Outfile)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := enc.Encode(entry); err != nil {
				return err
			}
			increment(j.ProgressBar)
		}
	}
}
