// Package app wires the configured document store into the status history
// and runs one action against it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-status-history/catalog"
	"github.com/pteich/elastic-status-history/elastic"
	"github.com/pteich/elastic-status-history/flags"
	"github.com/pteich/elastic-status-history/formats"
	"github.com/pteich/elastic-status-history/history"
	"github.com/pteich/elastic-status-history/metrics"
	"github.com/pteich/elastic-status-history/scenario"
)

var ErrUnknownAction = errors.New("unknown action")

func Run(ctx context.Context, conf *flags.Flags, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := history.ParseDuplicatePolicy(conf.Duplicates)
	if err != nil {
		return err
	}

	client, err := createClient(conf, logger)
	if err != nil {
		return fmt.Errorf("connect document store: %w", err)
	}
	defer client.Stop()

	if conf.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		client = metrics.Instrument(client, metrics.NewCollectors(reg))

		srv := metrics.Serve(conf.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	outfile, closeOut, err := openOutput(conf.Outfile)
	if err != nil {
		return err
	}
	defer closeOut()

	if conf.Action == flags.ActionCatalog {
		return runCatalog(ctx, conf, client, outfile, logger)
	}

	store := history.NewStore(client,
		history.WithIndex(conf.Index),
		history.WithDuplicatePolicy(policy),
		history.WithPageSize(conf.PageSize),
	)
	if conf.Reset {
		logger.Info("resetting history index", zap.String("index", store.Index()))
		if err := store.Reset(ctx); err != nil {
			return err
		}
	} else if err := store.EnsureIndex(ctx); err != nil {
		return err
	}

	svc := history.NewService(store, history.WithLogger(logger))

	switch conf.Action {
	case flags.ActionRecord:
		return runRecord(ctx, conf, svc, outfile)
	case flags.ActionStatus:
		return runStatus(ctx, conf, svc, outfile)
	case flags.ActionHistory:
		return runHistory(ctx, conf, svc, outfile)
	case "", flags.ActionScenario:
		return runScenario(ctx, conf, svc, outfile, logger)
	case flags.ActionLive:
		return runLive(ctx, conf, svc, outfile)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, conf.Action)
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func parseAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

func requireEntity(conf *flags.Flags) error {
	if conf.Entity == "" {
		return errors.New("entity is required")
	}
	return nil
}

func runRecord(ctx context.Context, conf *flags.Flags, svc *history.Service, out io.Writer) error {
	if err := requireEntity(conf); err != nil {
		return err
	}

	var id string
	var err error
	if conf.At == "" {
		id, err = svc.RecordStatusChange(ctx, conf.Entity, conf.Status)
	} else {
		at, perr := parseAt(conf.At)
		if perr != nil {
			return perr
		}
		id, err = svc.RecordStatusChangeAt(ctx, conf.Entity, conf.Status, at)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, id)
	return err
}

func runStatus(ctx context.Context, conf *flags.Flags, svc *history.Service, out io.Writer) error {
	if err := requireEntity(conf); err != nil {
		return err
	}
	at, err := parseAt(conf.At)
	if err != nil {
		return err
	}

	status, found, err := svc.StatusAt(ctx, conf.Entity, at)
	if err != nil {
		return err
	}
	if !found {
		_, err = fmt.Fprintf(out, "%s: no status at %s\n", conf.Entity, history.FormatTimestamp(at))
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %s\n", conf.Entity, status)
	return err
}

func runHistory(ctx context.Context, conf *flags.Flags, svc *history.Service, out io.Writer) error {
	if err := requireEntity(conf); err != nil {
		return err
	}

	entries, err := svc.FullHistory(ctx, conf.Entity)
	if err != nil {
		return err
	}

	bar := pb.StartNew(len(entries))
	defer bar.Finish()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan history.Entry)
	go func() {
		defer close(ch)
		for _, e := range entries {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	var output formats.Formatter
	switch conf.OutFormat {
	case flags.FormatJSON:
		output = formats.JSON{Outfile: out, ProgressBar: bar}
	case flags.FormatRAW:
		output = formats.Raw{Outfile: out, ProgressBar: bar}
	default:
		output = formats.CSV{Outfile: out, ProgressBar: bar, Header: true}
	}

	if err := output.Run(ctx, ch); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runScenario(ctx context.Context, conf *flags.Flags, svc *history.Service, out io.Writer, logger *zap.Logger) error {
	sc := scenario.Default()
	if conf.ScenarioFile != "" {
		var err error
		sc, err = scenario.Load(conf.ScenarioFile)
		if err != nil {
			return err
		}
	}

	bar := pb.StartNew(len(sc.Events))
	report, err := scenario.Runner{Service: svc, Logger: logger, ProgressBar: bar}.Run(ctx, sc)
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "scenario %q: %d status changes recorded\n", report.Name, report.Recorded)
	for _, res := range report.Results {
		mark := "ok"
		if !res.OK {
			mark = "FAIL"
		}
		got := res.Got
		if !res.Found {
			got = "<none>"
		}
		fmt.Fprintf(out, "%-4s %s at %s: %s (want %q)\n", mark, res.Check.Entity, history.FormatTimestamp(res.Check.At), got, res.Check.Want)
	}

	if !report.Passed() {
		return fmt.Errorf("scenario %q: %d of %d checks failed", report.Name, report.Failed(), len(report.Results))
	}
	return nil
}

func runLive(ctx context.Context, conf *flags.Flags, svc *history.Service, out io.Writer) error {
	if err := requireEntity(conf); err != nil {
		return err
	}

	statuses := strings.Split(conf.Status, ",")
	stamps, err := scenario.Live(ctx, svc, conf.Entity, statuses, time.Duration(conf.Gap)*time.Millisecond)
	if err != nil {
		return err
	}

	for i, ts := range stamps {
		fmt.Fprintf(out, "%s\t%s\n", history.FormatTimestamp(ts), statuses[i])
	}

	// ask for the status between each pair of changes
	for i, ts := range stamps {
		at := ts
		if i+1 < len(stamps) {
			at = ts.Add(stamps[i+1].Sub(ts) / 2)
		}
		status, _, err := svc.StatusAt(ctx, conf.Entity, at)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "status at %s: %s\n", history.FormatTimestamp(at), status)
	}
	return nil
}

func runCatalog(ctx context.Context, conf *flags.Flags, client elastic.Client, out io.Writer, logger *zap.Logger) error {
	c := catalog.New(client, "")

	created, err := c.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog index ready", zap.String("index", catalog.DefaultIndex), zap.Bool("created", created))

	for _, p := range catalog.SampleProducts {
		if err := c.Index(ctx, p); err != nil {
			return err
		}
	}

	all, err := c.All(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "All products (%d):\n", len(all))
	for _, p := range all {
		fmt.Fprintln(out, p)
	}

	search := conf.Search
	if search == "" {
		search = "phone"
	}
	found, err := c.Search(ctx, search)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %d products for %q:\n", len(found), search)
	for _, p := range found {
		fmt.Fprintln(out, p)
	}
	return nil
}
