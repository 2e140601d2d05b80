package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/surveykit/poststrat/pkg/cache"
	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/quantile"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/survey"
	"github.com/surveykit/poststrat/pkg/table"
	"github.com/surveykit/poststrat/pkg/weighting"
)

// Runner encapsulates pipeline execution with profile caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → profile → frame → weigh → trim →
// estimate pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Fields: opts.OutcomeFields}
	required := append([]string{opts.GenderColumn, opts.AgeColumn}, opts.OutcomeFields...)

	// Stage 0: Load
	loadStart := time.Now()
	refRows, refHash, err := r.loadReference(opts, required)
	if err != nil {
		return nil, err
	}
	targetRows, err := r.loadTarget(opts, required)
	if err != nil {
		return nil, err
	}
	result.Stats.ReferenceCount = len(refRows)
	result.Stats.TargetCount = len(targetRows)
	result.Stats.LoadTime = time.Since(loadStart)

	opts.Logger.Info("loaded datasets",
		"reference", len(refRows),
		"target", len(targetRows),
		"duration", result.Stats.LoadTime)

	// Stage 1: Profile
	profileStart := time.Now()
	profile, hit, err := r.profileFor(ctx, refRows, refHash, opts)
	if err != nil {
		return nil, err
	}
	result.Profile = profile
	result.CacheInfo.ProfileHit = hit
	result.Stats.ProfileTime = time.Since(profileStart)

	opts.Logger.Info("built population profile",
		"strata", len(profile),
		"cached", hit,
		"duration", result.Stats.ProfileTime)

	// Stage 2: Frame
	weightStart := time.Now()
	frame, err := survey.Build(targetRows, opts.Columns(), opts.OutcomeFields, opts.Classifier())
	if err != nil {
		return nil, err
	}
	result.Stats.RetainedCount = frame.Len()
	result.Stats.DroppedCount = frame.Dropped
	opts.Logger.Debug("built survey frame",
		"retained", frame.Len(),
		"dropped", frame.Dropped)

	if !opts.AllowPartialStrata {
		if err := frame.CheckCoverage(profile); err != nil {
			return nil, err
		}
	}

	// Stage 3: Weigh
	weighted, warnings, err := weighting.Weigh(frame, profile, opts.AllowPartialStrata)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings
	for _, w := range warnings {
		opts.Logger.Warn("degenerate stratum target",
			"stratum", w.Stratum,
			"proportion", w.Proportion,
			"sampled", w.SampleCount)
	}

	// Stage 4: Trim
	trimmed, report, err := weighting.Trim(weighted, opts.LowerTrimBound, opts.UpperTrimBound)
	if err != nil {
		return nil, err
	}
	result.Frame = trimmed
	result.TrimReport = report
	result.Stats.WeightTime = time.Since(weightStart)

	opts.Logger.Info("computed weights",
		"respondents", trimmed.Len(),
		"total_weight", trimmed.TotalWeight(),
		"duration", result.Stats.WeightTime)

	// Stage 5: Estimate. Outcome fields are independent over the
	// finalized read-only frame, so they fan out safely.
	estimateStart := time.Now()
	type fieldTables struct {
		weighted  quantile.Table
		reference quantile.Table
	}
	tables := make([]fieldTables, len(opts.OutcomeFields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range opts.OutcomeFields {
		i, field := i, field
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wt, err := quantile.Estimate(trimmed, field, opts.QuantilePoints)
			if err != nil {
				return errors.Wrap(errors.GetCode(err), err, "estimate %s", field)
			}
			ref, err := quantile.Unweighted(referenceValues(refRows, field))
			if err != nil {
				return errors.Wrap(errors.GetCode(err), err, "reference distribution for %s", field)
			}
			tables[i] = fieldTables{weighted: wt, reference: ref}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Weighted = make(map[string]quantile.Table, len(opts.OutcomeFields))
	result.Reference = make(map[string]quantile.Table, len(opts.OutcomeFields))
	for i, field := range opts.OutcomeFields {
		result.Weighted[field] = tables[i].weighted
		result.Reference[field] = tables[i].reference
	}
	result.Stats.EstimateTime = time.Since(estimateStart)

	opts.Logger.Info("estimated distributions",
		"fields", len(opts.OutcomeFields),
		"points", opts.QuantilePoints,
		"duration", result.Stats.EstimateTime)

	return result, nil
}

// Profile builds (or fetches from cache) just the population profile.
// Used by the profile subcommand, which has no target dataset.
func (r *Runner) Profile(ctx context.Context, opts Options) (strata.Profile, bool, error) {
	// Profile-only runs have no target; satisfy validation with a
	// placeholder that is never read.
	if opts.TargetPath == "" && opts.TargetRows == nil {
		opts.TargetRows = []table.Row{}
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	refRows, refHash, err := r.loadReference(opts, []string{opts.GenderColumn, opts.AgeColumn})
	if err != nil {
		return nil, false, err
	}
	return r.profileFor(ctx, refRows, refHash, opts)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// loadReference returns the reference rows plus the dataset's content
// hash. Pre-loaded rows skip file I/O and return an empty hash, which
// disables profile caching for that run.
func (r *Runner) loadReference(opts Options, required []string) ([]table.Row, string, error) {
	if opts.ReferenceRows != nil {
		return opts.ReferenceRows, "", nil
	}
	data, err := os.ReadFile(opts.ReferencePath)
	if os.IsNotExist(err) {
		return nil, "", errors.New(errors.ErrCodeFileNotFound, "dataset not found: %s", opts.ReferencePath)
	}
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInternal, err, "open %s", opts.ReferencePath)
	}
	rows, err := table.Read(bytes.NewReader(data), required...)
	if err != nil {
		return nil, "", err
	}
	return rows, cache.Hash(data), nil
}

// loadTarget returns the target rows.
func (r *Runner) loadTarget(opts Options, required []string) ([]table.Row, error) {
	if opts.TargetRows != nil {
		return opts.TargetRows, nil
	}
	return table.ReadFile(opts.TargetPath, required...)
}

// profileFor returns the population profile for the reference rows,
// consulting the cache when a content hash is available. Cached entries
// that fail to decode or validate fall through to a rebuild.
func (r *Runner) profileFor(ctx context.Context, rows []table.Row, refHash string, opts Options) (strata.Profile, bool, error) {
	var key string
	if refHash != "" {
		key = r.Keyer.ProfileKey(refHash, opts.ProfileKeyOpts())
	}

	if key != "" && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var p strata.Profile
			if err := json.Unmarshal(data, &p); err == nil && p.Validate(ProfileSumTolerance) == nil {
				return p, true, nil
			}
		}
	}

	cols := opts.Columns()
	subjects := make([]strata.Subject, len(rows))
	for i, row := range rows {
		gender, _ := row.Get(cols.Gender)
		age, _ := row.Get(cols.Age)
		subjects[i] = strata.Subject{Gender: gender, Age: age}
	}
	p, err := strata.BuildProfile(subjects, opts.Classifier())
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		if data, err := json.Marshal(p); err == nil {
			_ = r.Cache.Set(ctx, key, data, cache.TTLProfile)
		}
	}
	return p, false, nil
}

// referenceValues extracts the parseable values of one outcome field
// from the reference rows. Missing cells are skipped; the reference
// distribution only needs the field itself, not full-record completeness.
func referenceValues(rows []table.Row, field string) []float64 {
	var out []float64
	for _, row := range rows {
		raw, ok := row.Get(field)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
