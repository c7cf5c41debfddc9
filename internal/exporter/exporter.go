// Package exporter sequences one export run: read watermark, fetch new
// rows, serialize, deliver, advance the watermark, record the outcome.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finchloft/sales-exporter/internal/archive"
	"github.com/finchloft/sales-exporter/internal/config"
	"github.com/finchloft/sales-exporter/internal/export"
	"github.com/finchloft/sales-exporter/internal/logging"
	"github.com/finchloft/sales-exporter/internal/mailer"
	"github.com/finchloft/sales-exporter/internal/runlog"
	"github.com/finchloft/sales-exporter/internal/source"
	"github.com/finchloft/sales-exporter/internal/watermark"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Exporter orchestrates the export pipeline.
type Exporter struct {
	cfg      config.Config
	store    watermark.Store
	src      source.SalesSource
	notifier mailer.Notifier
	runLog   *runlog.Logger
	archive  archive.Store // nil when archival is disabled

	clock func() time.Time
	state State
	log   *slog.Logger
}

// New creates an exporter over the given collaborators. arch may be nil.
func New(cfg config.Config, store watermark.Store, src source.SalesSource, notifier mailer.Notifier, runLog *runlog.Logger, arch archive.Store) *Exporter {
	return &Exporter{
		cfg:      cfg,
		store:    store,
		src:      src,
		notifier: notifier,
		runLog:   runLog,
		archive:  arch,
		clock:    time.Now,
		state:    StateIdle,
		log:      logging.Component("exporter"),
	}
}

// Run executes one complete export run. A non-nil error means the run
// failed and the process should exit non-zero; the outcome has already
// been recorded either way.
func (e *Exporter) Run(ctx context.Context) error {
	runID := logging.GenerateRunID()
	log := e.log.With("run_id", runID)
	e.state = StateIdle

	if e.cfg.Watermark.LockFile != "" {
		lock := watermark.NewFileLock(e.cfg.Watermark.LockFile)
		if err := lock.Acquire(); err != nil {
			return e.fail(ctx, log, fmt.Errorf("acquire run lock: %w", err))
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	since, err := e.store.Load()
	if err != nil {
		if errors.Is(err, watermark.ErrNoWatermark) || errors.Is(err, watermark.ErrBadWatermark) {
			log.Warn("watermark unavailable, using sentinel",
				"error", err,
				"sentinel", watermark.Sentinel.Format(watermark.Format),
			)
			since = watermark.Sentinel
		} else {
			return e.fail(ctx, log, fmt.Errorf("load watermark: %w", err))
		}
	}
	e.to(log, StateWatermarkLoaded)
	log.Info("watermark loaded", "since", since.Format(watermark.Format))

	rows, err := e.src.FetchSince(ctx, since)
	if err != nil {
		return e.fail(ctx, log, err)
	}
	e.to(log, StateDataFetched)
	log.Info("fetched result set", "rows", len(rows))

	if len(rows) == 0 {
		return e.finishEmpty(ctx, log)
	}
	return e.deliver(ctx, log, rows)
}

// finishEmpty handles the no-new-rows branch: notice only, watermark
// untouched, run still succeeds.
func (e *Exporter) finishEmpty(ctx context.Context, log *slog.Logger) error {
	err := e.notifier.SendNotice(ctx,
		"Sales export: no new data",
		"No sales rows have been recorded since the last export.",
	)
	if err != nil {
		log.Warn("failed to send no-data notice", "error", err)
	}
	e.to(log, StateNoDataNotified)
	e.to(log, StateUnchanged)

	e.record(runlog.Entry{At: e.clock(), Outcome: runlog.OutcomeEmpty})
	e.to(log, StateLogged)
	e.state = StateIdle

	log.Info("run complete", "outcome", string(runlog.OutcomeEmpty))
	return nil
}

// deliver handles the non-empty branch: serialize, archive, send, and
// advance the watermark only after the send is accepted.
func (e *Exporter) deliver(ctx context.Context, log *slog.Logger, rows []source.SaleRow) error {
	payload, err := export.CSV(rows)
	if err != nil {
		return e.fail(ctx, log, err)
	}
	if e.cfg.Export.Compress {
		if payload, err = export.Gzip(payload); err != nil {
			return e.fail(ctx, log, err)
		}
	}
	now := e.clock()
	filename := export.Filename(now, e.cfg.Export.Compress)

	e.archivePayload(ctx, log, rows, filename, payload, now)

	if err := e.notifier.SendReport(ctx, filename, payload, len(rows)); err != nil {
		return e.fail(ctx, log, err)
	}
	e.to(log, StateDelivered)
	log.Info("report delivered", "filename", filename, "rows", len(rows), "bytes", len(payload))

	maxSold := source.MaxSoldAt(rows)
	if err := e.store.Save(maxSold); err != nil {
		// The email is out; the next run will re-send these rows.
		// Surface the inconsistency as a run failure so the operator
		// sees it.
		return e.fail(ctx, log, fmt.Errorf("delivered %d rows but watermark not persisted: %w", len(rows), err))
	}
	e.to(log, StateWatermarkUpdated)
	log.Info("watermark advanced", "watermark", maxSold.Format(watermark.Format))

	e.record(runlog.Entry{At: e.clock(), Outcome: runlog.OutcomeSuccess, Rows: len(rows)})
	e.to(log, StateLogged)
	e.state = StateIdle

	log.Info("run complete", "outcome", string(runlog.OutcomeSuccess), "rows", len(rows))
	return nil
}

// archivePayload stores a copy of the export when archival is enabled.
// Best-effort: the email is the delivery contract.
func (e *Exporter) archivePayload(ctx context.Context, log *slog.Logger, rows []source.SaleRow, filename string, payload []byte, now time.Time) {
	if e.archive == nil {
		return
	}

	key := filename
	data := payload
	if e.cfg.Archive.Format == "parquet" {
		parquetBytes, err := export.Parquet(rows)
		if err != nil {
			log.Warn("failed to build parquet archive copy", "error", err)
			return
		}
		key = fmt.Sprintf("sales-export-%s.parquet", now.Format("20060102"))
		data = parquetBytes
	}

	if err := e.archive.Put(ctx, key, data); err != nil {
		log.Warn("failed to archive payload", "error", err, "key", key)
	}
}

// fail records the failure outcome, optionally sends a failure notice,
// and returns the original error for the non-zero exit.
func (e *Exporter) fail(ctx context.Context, log *slog.Logger, err error) error {
	reason := classify(err)
	log.Error("run failed", "reason", reason, "error", err)

	e.record(runlog.Entry{At: e.clock(), Outcome: runlog.OutcomeFailure, Reason: reason})
	e.to(log, StateLogged)
	e.state = StateIdle

	if e.cfg.NotifyOnFailure {
		notice := e.notifier.SendNotice(ctx,
			"Sales export failed",
			fmt.Sprintf("The sales export did not complete: %s.\n\n%v", reason, err),
		)
		if notice != nil {
			log.Warn("failed to send failure notice", "error", notice)
		}
	}
	return err
}

// to advances the state machine, guarding against illegal transitions.
func (e *Exporter) to(log *slog.Logger, next State) {
	if !canTransition(e.state, next) {
		log.Error("illegal state transition", "from", e.state.String(), "to", next.String())
	}
	log.Debug("state transition", "from", e.state.String(), "to", next.String())
	e.state = next
}

func (e *Exporter) record(entry runlog.Entry) {
	if e.runLog != nil {
		e.runLog.Record(entry)
	}
}

// classify maps an error chain to the run log reason.
func classify(err error) string {
	switch {
	case errors.Is(err, source.ErrConnect):
		return "connection error"
	case errors.Is(err, source.ErrQuery):
		return "query error"
	case errors.Is(err, export.ErrSerialize):
		return "serialization error"
	case errors.Is(err, mailer.ErrDelivery):
		return "delivery error"
	case errors.Is(err, watermark.ErrLocked):
		return "overlapping run"
	default:
		return "internal error"
	}
}
