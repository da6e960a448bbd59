package formats

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/history"
)

// Raw writes "timestamp<TAB>status" lines.
type Raw struct {
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
}

func (r Raw) Run(ctx context.Context, entries <-chan history.Entry) error {
	for entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(r.Outfile, "%s\t%s\n", history.FormatTimestamp(entry.Timestamp), entry.Status); err != nil {
			return err
		}
		increment(r.ProgressBar)
	}
	return nil
}
