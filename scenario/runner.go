package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/history"
)

const workers = 8

type Result struct {
	Check Check
	Got   string
	Found bool
	OK    bool
}

type Report struct {
	Name     string
	Recorded int
	Results  []Result
}

// Passed reports whether every check matched.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK {
			n++
		}
	}
	return n
}

type Runner struct {
	Service     *history.Service
	Logger      *zap.Logger
	ProgressBar *pb.ProgressBar
}

// Run backfills all events and evaluates the checks afterwards. Events of one
// entity are written in file order, different entities concurrently.
func (r Runner) Run(ctx context.Context, sc *Scenario) (Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	report := Report{Name: sc.Name}

	byEntity := make(map[string][]Event)
	var order []string
	for _, e := range sc.Events {
		if _, ok := byEntity[e.Entity]; !ok {
			order = append(order, e.Entity)
		}
		byEntity[e.Entity] = append(byEntity[e.Entity], e)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entity := range order {
		events := byEntity[entity]
		g.Go(func() error {
			for _, e := range events {
				if _, err := r.Service.RecordStatusChangeAt(gctx, e.Entity, e.Status, e.At); err != nil {
					return err
				}
				if r.ProgressBar != nil {
					r.ProgressBar.Increment()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Recorded = len(sc.Events)

	for _, c := range sc.Checks {
		got, found, err := r.Service.StatusAt(ctx, c.Entity, c.At)
		if err != nil {
			return report, err
		}
		res := Result{Check: c, Got: got, Found: found, OK: found == (c.Want != "") && got == c.Want}
		report.Results = append(report.Results, res)

		logger.Info("scenario check",
			zap.String("entity", c.Entity),
			zap.Time("at", c.At),
			zap.String("want", c.Want),
			zap.String("got", got),
			zap.Bool("ok", res.OK),
		)
	}

	return report, nil
}

// Live records statuses for one entity stamped with the current time, waiting
// gap between them, and returns the timestamps used.
func Live(ctx context.Context, svc *history.Service, entity string, statuses []string, gap time.Duration) ([]time.Time, error) {
	stamps := make([]time.Time, 0, len(statuses))
	for i, status := range statuses {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				return stamps, ctx.Err()
			case <-time.After(gap):
			}
		}

		ts := time.Now().UTC()
		if _, err := svc.RecordStatusChangeAt(ctx, entity, status, ts); err != nil {
			return stamps, err
		}
		stamps = append(stamps, ts)
	}
	return stamps, nil
}
