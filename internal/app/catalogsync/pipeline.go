package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app/catalogsync/validator"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/app/catalogsync/wikitext"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Result is what a run produced: the validated records in title order and
// the aggregated report.
type Result struct {
	Records []domain.VehicleRecord
	Report  domain.SyncReport
}

// FailedError ends a run in the Failed state. Report holds every batch that
// completed before the failure.
type FailedError struct {
	Phase  domain.Phase
	Report domain.SyncReport
	Err    error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("catalog sync failed while %s: %v", strings.ToLower(string(e.Phase)), e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sends run counters to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.rec = r }
}

// WithClock replaces time.Now for progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline fetches, parses, validates and merges the title universe batch by
// batch. One Pipeline runs once at a time.
type Pipeline struct {
	log       *slog.Logger
	source    PageSource
	store     CatalogStore
	progress  ProgressStore
	cfg       Config
	universe  []domain.PageTitle
	extractor *wikitext.Extractor
	rec       Recorder
	now       func() time.Time

	mu      sync.Mutex
	phase   domain.Phase
	stopped atomic.Bool
}

// NewPipeline creates a new Pipeline over universe, the ordered list of titles
// to crawl.
func NewPipeline(
	log *slog.Logger,
	source PageSource,
	store CatalogStore,
	progress ProgressStore,
	universe []domain.PageTitle,
	cfg Config,
	opts ...Option,
) *Pipeline {
	cfg = cfg.normalized()
	p := &Pipeline{
		log:       log.With("component", "catalogsync"),
		source:    source,
		store:     store,
		progress:  progress,
		cfg:       cfg,
		universe:  universe,
		extractor: wikitext.NewExtractor(cfg.ImageHost),
		rec:       nopRecorder{},
		now:       time.Now,
		phase:     domain.PhaseIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Phase returns the current state machine position.
func (p *Pipeline) Phase() domain.Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Pipeline) setPhase(ph domain.Phase) {
	p.mu.Lock()
	prev := p.phase
	p.phase = ph
	p.mu.Unlock()
	if prev != ph {
		p.log.Debug("phase", slog.String("from", string(prev)), slog.String("to", string(ph)))
	}
}

// Stop asks a running pipeline to finish its in-flight batch and return.
func (p *Pipeline) Stop() { p.stopped.Store(true) }

// Run processes every title of the universe not yet processed in state and
// returns the advanced state. A title is marked processed only after its
// batch was merged and the progress save succeeded. Per-title and per-record
// failures go to the report; store outages, save failures and cancellation
// end the run with a *FailedError.
func (p *Pipeline) Run(ctx context.Context, state domain.ProgressState) (Result, domain.ProgressState, error) {
	start := time.Now()
	state = state.Clone()
	state.TotalTitles = len(p.universe)

	var (
		report  = domain.SyncReport{RunID: state.RunID}
		records []domain.VehicleRecord
	)
	pending := state.Pending(p.universe)

	p.log.InfoContext(ctx, "sync started",
		slog.String("run_id", state.RunID),
		slog.Int("total", len(p.universe)),
		slog.Int("pending", len(pending)),
		slog.Int("batch_size", p.cfg.BatchSize),
		slog.Bool("dry_run", p.cfg.DryRun),
	)

	for i := 0; i < len(pending); i += p.cfg.BatchSize {
		if p.stopped.Load() {
			report.Stopped = true
			p.log.InfoContext(ctx, "sync stopped", slog.Int("remaining", len(pending)-i))
			break
		}

		batch := pending[i:min(i+p.cfg.BatchSize, len(pending))]
		next, br, recs, err := p.runBatch(ctx, batch, state)
		if err != nil {
			failedIn := p.Phase()
			p.setPhase(domain.PhaseFailed)
			report.Duration = time.Since(start)
			p.log.ErrorContext(ctx, "sync failed",
				slog.String("phase", string(failedIn)),
				slog.String("first", string(batch[0])),
				slog.String("error", err.Error()),
			)
			return Result{Records: records, Report: report}, state,
				&FailedError{Phase: failedIn, Report: report, Err: err}
		}

		state = next
		report.Absorb(br)
		records = append(records, recs...)

		p.log.InfoContext(ctx, "batch completed",
			slog.Int("batch", report.Batches),
			slog.Int("processed", len(state.ProcessedTitles)),
			slog.Int("total", state.TotalTitles),
			slog.Int("valid", br.Valid),
			slog.Int("invalid", br.Invalid),
		)
	}

	p.setPhase(domain.PhaseDone)
	report.Duration = time.Since(start)

	p.log.InfoContext(ctx, "sync completed",
		slog.String("run_id", report.RunID),
		slog.Int("fetched", report.Fetched),
		slog.Int("valid", report.Valid),
		slog.Int("invalid", report.Invalid),
		slog.Int("skipped", report.Skipped),
		slog.Int("inserted", report.Inserted),
		slog.Int("updated", report.Updated),
		slog.Int("unchanged", report.Duplicates),
		slog.Int("failures", len(report.Failures)),
		slog.Bool("stopped", report.Stopped),
		slog.Duration("duration", report.Duration),
	)

	return Result{Records: records, Report: report}, state, nil
}

// fetched pairs a page with its per-title fetch failure, if any.
type fetched struct {
	page domain.WikiPage
	err  error
}

// runBatch takes one batch from fetch to save and returns the advanced state.
// On error the returned state must be discarded.
func (p *Pipeline) runBatch(
	ctx context.Context,
	titles []domain.PageTitle,
	state domain.ProgressState,
) (domain.ProgressState, domain.SyncReport, []domain.VehicleRecord, error) {
	br := domain.SyncReport{Batches: 1}

	p.setPhase(domain.PhaseFetching)
	pages, err := p.fetch(ctx, titles)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, br, nil, ctxErr
		}
		p.log.WarnContext(ctx, "batch unreachable",
			slog.Int("titles", len(titles)),
			slog.String("first", string(titles[0])),
			slog.String("error", err.Error()),
		)
		for _, t := range titles {
			p.unreachable(&br, t, err)
		}
		return p.advance(state, br, nil, titles)
	}
	br.Fetched = len(titles)

	work := make([]fetched, len(titles))
	for i, t := range titles {
		r, ok := pages[t]
		switch {
		case !ok:
			work[i] = fetched{page: domain.WikiPage{Title: t, ResolvedTitle: t}}
		case r.Err != nil && errors.Is(r.Err, domain.ErrSourceAbsent):
			work[i] = fetched{page: domain.WikiPage{Title: t, ResolvedTitle: t}}
		default:
			work[i] = fetched{page: r.Page, err: r.Err}
			work[i].page.Title = t
		}
	}

	outcomes, err := p.inspect(ctx, work)
	if err != nil {
		return state, br, nil, err
	}

	var valid []domain.VehicleRecord
	for i, w := range work {
		if w.err != nil {
			p.unreachable(&br, w.page.Title, w.err)
			continue
		}
		if w.page.Exists {
			br.Parsed++
		}
		for _, o := range outcomes[i] {
			p.rec.Validated(o.Verdict)
			switch o.Verdict {
			case domain.VerdictValid:
				br.Valid++
				valid = append(valid, *o.Record)
			case domain.VerdictSkipped:
				br.Skipped++
				p.addFailure(&br, domain.PageFailure{
					Title:  o.Title,
					Class:  domain.FailureSourceAbsent,
					Reason: o.Reason,
				})
			default:
				br.Invalid++
				p.addFailure(&br, invalidFailure(&br, o))
			}
		}
	}

	p.setPhase(domain.PhaseMerging)
	if err := p.merge(ctx, &br, valid); err != nil {
		return state, br, nil, err
	}

	return p.advance(state, br, valid, titles)
}

// fetch requests one batch, retrying transport failures with exponential
// backoff. The source's own pacing still applies to every attempt.
func (p *Pipeline) fetch(ctx context.Context, titles []domain.PageTitle) (map[domain.PageTitle]domain.PageResult, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.BackoffInitial
	policy.MaxInterval = p.cfg.BackoffMax
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.cfg.MaxFetchRetries)), ctx)

	var pages map[domain.PageTitle]domain.PageResult
	op := func() error {
		res, err := p.source.FetchBatch(ctx, titles)
		if err != nil {
			if errors.Is(err, domain.ErrTransport) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		pages = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		p.rec.FetchRetried()
		p.log.WarnContext(ctx, "batch fetch failed, retrying",
			slog.String("first", string(titles[0])),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	}

	start := time.Now()
	err := backoff.RetryNotify(op, b, notify)
	p.rec.BatchFetched(time.Since(start))
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// inspect parses and validates the batch's pages with bounded concurrency.
// outcomes[i] belongs to work[i].
func (p *Pipeline) inspect(ctx context.Context, work []fetched) ([][]domain.ValidationOutcome, error) {
	p.setPhase(domain.PhaseParsing)
	parses := make([]wikitext.PageParse, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ParseWorkers)
	for i := range work {
		if work[i].err != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parses[i] = p.extractor.ParsePage(work[i].page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.setPhase(domain.PhaseValidating)
	outcomes := make([][]domain.ValidationOutcome, len(work))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ParseWorkers)
	for i := range work {
		if work[i].err != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = validator.Validate(work[i].page, parses[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// merge upserts the batch's valid records. Rejected records become
// PERSISTENCE failures; only a store-level error is returned.
func (p *Pipeline) merge(ctx context.Context, br *domain.SyncReport, valid []domain.VehicleRecord) error {
	if len(valid) == 0 || p.cfg.DryRun {
		return nil
	}

	results, err := p.store.BulkUpsert(ctx, valid)
	if err != nil {
		return fmt.Errorf("merge %d records: %w", len(valid), err)
	}
	if len(results) != len(valid) {
		return fmt.Errorf("merge: store returned %d results for %d records: %w",
			len(results), len(valid), domain.ErrPersistence)
	}

	for i, r := range results {
		if r.Err != nil {
			rec := valid[i]
			p.addFailure(br, domain.PageFailure{
				Title:  rec.SourceTitle,
				Class:  domain.FailurePersistence,
				Reason: r.Err.Error(),
				Record: &rec,
			})
			continue
		}
		p.rec.Upserted(r.Outcome)
		switch r.Outcome {
		case domain.UpsertInserted:
			br.Inserted++
			br.Merged++
		case domain.UpsertUpdated:
			br.Updated++
			br.Merged++
		case domain.UpsertUnchanged:
			br.Duplicates++
		}
	}
	return nil
}

// advance marks titles processed on a copy of state and saves it. The copy
// is returned only once the save is durable.
func (p *Pipeline) advance(
	state domain.ProgressState,
	br domain.SyncReport,
	valid []domain.VehicleRecord,
	titles []domain.PageTitle,
) (domain.ProgressState, domain.SyncReport, []domain.VehicleRecord, error) {
	p.setPhase(domain.PhaseAdvancing)

	next := state.Clone()
	next.MarkProcessed(p.now(), titles...)
	if !p.cfg.DryRun {
		if err := p.progress.Save(next); err != nil {
			return state, br, nil, fmt.Errorf("save progress: %w", err)
		}
	}
	return next, br, valid, nil
}

func (p *Pipeline) unreachable(br *domain.SyncReport, title domain.PageTitle, err error) {
	br.Invalid++
	br.Unreachable++
	p.rec.Validated(domain.VerdictInvalid)
	p.addFailure(br, domain.PageFailure{
		Title:  title,
		Class:  domain.FailureTransport,
		Reason: domain.ReasonUnreachable + ": " + err.Error(),
	})
}

func (p *Pipeline) addFailure(br *domain.SyncReport, f domain.PageFailure) {
	p.rec.Failed(f.Class)
	br.AddFailure(f)
}

// invalidFailure classifies an invalid outcome.
func invalidFailure(br *domain.SyncReport, o domain.ValidationOutcome) domain.PageFailure {
	f := domain.PageFailure{Title: o.Title, Reason: o.Reason}
	switch {
	case o.Reason == domain.ReasonNoTemplate:
		f.Class = domain.FailureParseEmpty
	case strings.HasPrefix(o.Reason, domain.ReasonNeedsReview):
		br.NeedsReview++
		f.Class = domain.FailureReview
	default:
		f.Class = domain.FailureValidation
		f.MissingFields = o.MissingFields
		f.Reason = "missing required fields: " + strings.Join(o.MissingFields, ", ")
		f.Record = o.Record
	}
	return f
}
