// Package pkg provides the core libraries for poststrat survey reweighting.
//
// # Overview
//
// Poststrat adjusts a target survey so that its demographic composition
// matches a reference population, using post-stratification on gender and
// age strata. The pkg directory is organized into four main areas:
//
//  1. Domain logic (strata, survey, weighting, quantile)
//  2. Data plumbing (table, store)
//  3. Infrastructure (cache, errors, buildinfo)
//  4. Orchestration (pipeline)
//
// # Architecture
//
// The typical data flow through poststrat:
//
//	Reference TSV          Target TSV
//	      ↓                     ↓
//	 [strata] package (classify into gender × age strata)
//	      ↓                     ↓
//	 population profile    [survey] frame
//	            ↘             ↙
//	        [weighting] package (weigh + trim)
//	                  ↓
//	        [quantile] package (distribution estimation)
//	                  ↓
//	        TSV/JSON comparison table, optional SQLite record
//
// # Quick Start
//
// Run the full pipeline:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    ReferencePath: "census.tsv",
//	    TargetPath:    "panel.tsv",
//	})
//	if err != nil {
//	    return err
//	}
//	rows := result.Rows()
//
// # Main Packages
//
// [strata] - Gender × age-band classification and population profiles.
// The stratum space is fixed: two gender codes crossed with five age
// bands starting at 13.
//
// [survey] - The target survey frame: filtered respondents labeled with
// their stratum, outcome values, and current weight.
//
// [weighting] - Post-stratification weight computation and trimming with
// before/after distribution summaries.
//
// [quantile] - Weighted distribution estimation over a fixed probability
// grid, plus the unweighted variant for reference data.
//
// [table] - TSV/JSON reading and writing of survey rows and result tables.
//
// [store] - SQLite persistence for run parameters and result distributions.
//
// [cache] - Content-addressed profile cache with file-backed and no-op
// implementations.
//
// [pipeline] - Complete reweighting pipeline (load → profile → weigh →
// trim → estimate) used by all CLI commands. Ensures consistent behavior
// across entry points.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/weighting    # Specific package
//
// [strata]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/strata
// [survey]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/survey
// [weighting]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/weighting
// [quantile]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/quantile
// [table]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/table
// [store]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/store
// [cache]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/surveykit/poststrat/pkg/pipeline
package pkg
