// Package pipeline builds the county nitrogen-surplus panel from its sources.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifews/nsurplus/internal/nbalance"
	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/store"
	"github.com/ifews/nsurplus/internal/variable"
)

// Sources supplies county observations and state control totals per variable group.
type Sources interface {
	Observations(ctx context.Context, g variable.Group) ([]panel.Observation, error)
	ControlTotals(ctx context.Context, g variable.Group) (panel.ControlTotals, error)
}

// RateSource supplies the fertilizer-rate panel in lb N/acre.
type RateSource interface {
	Rates(ctx context.Context) (map[panel.Key]float64, error)
}

// Sink persists a finished run.
type Sink interface {
	SavePanel(ctx context.Context, runID string, p *panel.Panel) (int64, error)
	SaveBalance(ctx context.Context, runID string, p *panel.Panel) (int64, error)
}

// RunRecorder tracks run lifecycle.
type RunRecorder interface {
	Start(ctx context.Context, state string) (string, error)
	Complete(ctx context.Context, runID string, result *store.RunResult) error
	Fail(ctx context.Context, runID string, errMsg string) error
}

// Reference selects which control totals define the panel's year range.
const (
	ReferenceCrops   = "crops"
	ReferenceAnimals = "animals"
)

// Options configures a Pipeline.
type Options struct {
	State      string
	CutoffYear int
	Reference  string
}

// Stats counts what each stage produced.
type Stats struct {
	Counties     int
	FirstYear    int
	LastYear     int
	AnimalRows   int
	CropRows     int
	JoinedRows   int
	RatedRows    int
	CellsWritten int64
	BalanceRows  int64
	Duration     time.Duration
}

// Result is the output of one run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Panel     *panel.Panel
	Issues    []panel.Issue
	Stats     Stats
}

// Pipeline wires sources, the panel stages and the optional sink together.
type Pipeline struct {
	sources Sources
	rates   RateSource
	sink    Sink
	runs    RunRecorder
	opts    Options
	log     *zap.Logger
}

// New creates a Pipeline. sink and runs may be nil.
func New(src Sources, rates RateSource, sink Sink, runs RunRecorder, opts Options) *Pipeline {
	if opts.Reference == "" {
		opts.Reference = ReferenceCrops
	}
	return &Pipeline{
		sources: src,
		rates:   rates,
		sink:    sink,
		runs:    runs,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "pipeline")),
	}
}

// Run executes the full build. Data-quality problems are returned in Result.Issues; only
// fetch failures, schema mismatches and persistence errors fail the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID, err := p.startRun(ctx)
	if err != nil {
		return nil, err
	}
	log := p.log.With(zap.String("run_id", runID))
	log.Info("pipeline: starting build", zap.String("state", p.opts.State))

	res, err := p.build(ctx, log)
	if err != nil {
		p.failRun(ctx, log, runID, err)
		return nil, err
	}
	res.RunID = runID
	res.StartedAt = start

	if p.sink != nil {
		if err := p.persist(ctx, res); err != nil {
			p.failRun(ctx, log, runID, err)
			return nil, err
		}
	}
	res.Stats.Duration = time.Since(start)

	if p.runs != nil {
		if err := p.runs.Complete(ctx, runID, &store.RunResult{
			RowsWritten: res.Stats.CellsWritten,
			Issues:      len(res.Issues),
			Metadata: map[string]any{
				"counties":   res.Stats.Counties,
				"first_year": res.Stats.FirstYear,
				"last_year":  res.Stats.LastYear,
				"rows":       res.Stats.RatedRows,
			},
		}); err != nil {
			log.Warn("pipeline: failed to complete run log", zap.Error(err))
		}
	}

	log.Info("pipeline: build complete",
		zap.Int("counties", res.Stats.Counties),
		zap.Int("rows", res.Stats.RatedRows),
		zap.Int("issues", len(res.Issues)),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

func (p *Pipeline) startRun(ctx context.Context) (string, error) {
	if p.runs == nil {
		return uuid.New().String(), nil
	}
	id, err := p.runs.Start(ctx, p.opts.State)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: start run")
	}
	return id, nil
}

func (p *Pipeline) failRun(ctx context.Context, log *zap.Logger, runID string, cause error) {
	log.Error("pipeline: build failed", zap.Error(cause))
	if p.runs == nil {
		return
	}
	if err := p.runs.Fail(ctx, runID, cause.Error()); err != nil {
		log.Warn("pipeline: failed to record run failure", zap.Error(err))
	}
}

func (p *Pipeline) build(ctx context.Context, log *zap.Logger) (*Result, error) {
	animalTotals, cropTotals, err := p.controlTotals(ctx)
	if err != nil {
		return nil, err
	}

	ref := cropTotals
	if p.opts.Reference == ReferenceAnimals {
		ref = animalTotals
	}
	rng, ok := ref.Range()
	if !ok {
		return nil, eris.Wrapf(panel.ErrEmptyReferenceRange, "pipeline: no %s control totals", p.opts.Reference)
	}
	log.Info("pipeline: reference range", zap.Int("from", rng.From), zap.Int("to", rng.To))

	var (
		animals, crops *panel.Panel
		rates          map[panel.Key]float64
		animalIssues   []panel.Issue
		cropIssues     []panel.Issue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		animals, animalIssues, err = p.animalBranch(gctx, rng, animalTotals)
		return err
	})
	g.Go(func() error {
		var err error
		crops, cropIssues, err = p.cropBranch(gctx, rng)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = p.rates.Rates(gctx)
		return eris.Wrap(err, "pipeline: load fertilizer rates")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined := panel.LeftJoin(animals, crops)
	rated := panel.InnerJoinRates(joined, rates, variable.CNRate)
	out, nIssues := nbalance.Evaluate(rated)
	panel.LogIssues(log, "nbalance", nIssues)

	issues := make([]panel.Issue, 0, len(animalIssues)+len(cropIssues)+len(nIssues))
	issues = append(issues, animalIssues...)
	issues = append(issues, cropIssues...)
	issues = append(issues, nIssues...)

	st := Stats{
		Counties:   len(out.Counties()),
		AnimalRows: animals.Len(),
		CropRows:   crops.Len(),
		JoinedRows: joined.Len(),
		RatedRows:  out.Len(),
	}
	if years := out.Years(); len(years) > 0 {
		st.FirstYear, st.LastYear = years[0], years[len(years)-1]
	}
	return &Result{Panel: out, Issues: issues, Stats: st}, nil
}

func (p *Pipeline) controlTotals(ctx context.Context) (animals, crops panel.ControlTotals, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		animals, err = p.sources.ControlTotals(gctx, variable.GroupAnimal)
		return eris.Wrap(err, "pipeline: animal control totals")
	})
	g.Go(func() error {
		var err error
		crops, err = p.sources.ControlTotals(gctx, variable.GroupCrop)
		return eris.Wrap(err, "pipeline: crop control totals")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return animals, crops, nil
}

func (p *Pipeline) persist(ctx context.Context, res *Result) error {
	n, err := p.sink.SavePanel(ctx, res.RunID, res.Panel)
	if err != nil {
		return eris.Wrap(err, "pipeline: save panel")
	}
	res.Stats.CellsWritten = n

	b, err := p.sink.SaveBalance(ctx, res.RunID, res.Panel)
	if err != nil {
		return eris.Wrap(err, "pipeline: save balance")
	}
	res.Stats.BalanceRows = b
	return nil
}
