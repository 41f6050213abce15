// Package linkage wires the stages of a run together: load both record
// sets and the ground truth, index, compare, classify and evaluate.
package linkage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/blocking"
	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/dataset"
	"github.com/lehigh-university-libraries/linker/internal/logger"
	"github.com/lehigh-university-libraries/linker/internal/telemetry"
)

// Inputs are the loaded record sets of a run.
type Inputs struct {
	A *domain.Collection
	B *domain.Collection
	// Truth holds the ground-truth pairs whose ids exist in both A and B.
	Truth *domain.PairSet
	// RawTruth is the ground truth as read from disk.
	RawTruth *domain.PairSet
}

// Options are the collaborators of a run that do not come from the YAML
// configuration.
type Options struct {
	// ConfigPath is recorded in snapshots and results metadata.
	ConfigPath string
	// Recorder receives run telemetry; nil disables it.
	Recorder *telemetry.Recorder
	// Issues collects data problems; a fresh counter is used when nil.
	Issues *domain.Issues
}

func (o Options) issues() *domain.Issues {
	if o.Issues == nil {
		return domain.NewIssues()
	}
	return o.Issues
}

// requiredColumns lists every column a run reads from the record files:
// the compared fields and the blocking fields.
func requiredColumns(cfg config.Config) []string {
	cols := cfg.FieldNames()
	add := func(name string) {
		if name == "" {
			return
		}
		for _, c := range cols {
			if c == name {
				return
			}
		}
		cols = append(cols, name)
	}
	switch opts := cfg.Indexer.Options; {
	case opts.Full != nil:
		add(opts.Full.Field)
	case opts.SortedNeighbourhood != nil:
		add(opts.SortedNeighbourhood.Field)
	case opts.Canopy != nil:
		for _, f := range opts.Canopy.Fields {
			add(f)
		}
	}
	add(cfg.Study.Field)
	return cols
}

func loadSource(ctx context.Context, src config.SourceConfig, param string, fields []string, issues *domain.Issues) (*domain.Collection, error) {
	delim, err := config.ParseDelimiter(param+".delimiter", src.Delimiter)
	if err != nil {
		return nil, err
	}
	loader := dataset.NewLoader(src.Path, dataset.Options{
		IDColumn:      src.IDColumn,
		Delimiter:     delim,
		Encoding:      src.Encoding,
		Fields:        fields,
		NumericFields: src.NumericFields,
		Issues:        issues,
		Logger:        logger.FromContext(ctx),
	})
	limit := -1
	if src.Sample > 0 {
		limit = src.Sample
	}
	c, err := loader.LoadSample(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", param, err)
	}
	return c, nil
}

// LoadInputs reads both collections and, when configured, the ground
// truth. Truth pairs naming unknown ids are counted in issues.
func LoadInputs(ctx context.Context, cfg config.Config, issues *domain.Issues) (*Inputs, error) {
	log := logger.FromContext(ctx)
	fields := requiredColumns(cfg)

	a, err := loadSource(ctx, cfg.Sources.A, "sources.a", fields, issues)
	if err != nil {
		return nil, err
	}
	b, err := loadSource(ctx, cfg.Sources.B, "sources.b", fields, issues)
	if err != nil {
		return nil, err
	}
	in := &Inputs{A: a, B: b, Truth: domain.NewPairSet(), RawTruth: domain.NewPairSet()}

	if cfg.Sources.Truth.Path != "" {
		delim, err := config.ParseDelimiter("sources.truth.delimiter", cfg.Sources.Truth.Delimiter)
		if err != nil {
			return nil, err
		}
		raw, err := dataset.LoadPairs(cfg.Sources.Truth.Path, delim, issues)
		if err != nil {
			return nil, fmt.Errorf("failed to load ground truth: %w", err)
		}
		in.RawTruth = raw
		in.Truth = dataset.ResolveTruth(raw, a, b, issues)
	}

	log.Info("Loaded inputs",
		zap.Int("records_a", a.Len()),
		zap.Int("records_b", b.Len()),
		zap.Int("truth_pairs", in.Truth.Len()),
		zap.Int("truth_unresolved", in.RawTruth.Len()-in.Truth.Len()))
	return in, nil
}

// Index loads the inputs and runs only the configured indexer. Data issues
// are counted into opts.Issues when set.
func Index(ctx context.Context, cfg config.Config, opts Options) (*Inputs, *domain.PairSet, error) {
	indexer, err := blocking.New(cfg.Indexer.Options)
	if err != nil {
		return nil, nil, err
	}
	issues := opts.issues()

	in, err := LoadInputs(ctx, cfg, issues)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	candidates, err := indexer.Index(in.A, in.B, issues)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index: %w", err)
	}
	opts.Recorder.CandidatePairs(indexer.Name(), candidates.Len())
	opts.Recorder.StageDuration("index", time.Since(start))

	log := logger.FromContext(ctx)
	log.Info("Indexed candidate pairs",
		zap.String("indexer", indexer.Name()),
		zap.Int("candidates", candidates.Len()),
		zap.Duration("elapsed", time.Since(start)))
	opts.Recorder.DataIssues(issues.Map())
	logIssues(log, issues)
	return in, candidates, nil
}
