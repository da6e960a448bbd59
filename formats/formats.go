package formats

import (
	"context"

	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/history"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatRAW  = "raw"
)

// Formatter writes history entries until the channel is closed.
type Formatter interface {
	Run(context.Context, <-chan history.Entry) error
}

func increment(bar *pb.ProgressBar) {
	if bar != nil {
		bar.Increment()
	}
}
