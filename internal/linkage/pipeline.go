package linkage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/blocking"
	"github.com/lehigh-university-libraries/linker/internal/classify"
	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"github.com/lehigh-university-libraries/linker/internal/eval/results"
	"github.com/lehigh-university-libraries/linker/internal/logger"
)

// Run executes a full linkage run: load, index, compare, train and
// evaluate every configured classifier. Each classifier's decided pairs are
// written to a mapping file and appended to the results log; the returned
// summary is also saved as a YAML snapshot when an evals directory is set.
//
// Configuration problems are reported before any file is opened.
func Run(ctx context.Context, cfg config.Config, opts Options) (*metrics.RunSummary, error) {
	log := logger.FromContext(ctx)

	indexer, err := blocking.New(cfg.Indexer.Options)
	if err != nil {
		return nil, err
	}
	vectorizer, err := compare.NewVectorizer(cfg.CompareFields())
	if err != nil {
		return nil, err
	}
	classifiers := make([]classify.Classifier, 0, len(cfg.Classifiers))
	for i, o := range cfg.Classifiers {
		o.ApplyDefaults()
		if err := o.Validate(fmt.Sprintf("classifiers[%d]", i)); err != nil {
			return nil, err
		}
		c, err := classify.New(o)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, c)
	}

	issues := opts.issues()
	summary := &metrics.RunSummary{
		RunID:          uuid.NewString(),
		EvaluationDate: time.Now().UTC(),
		Indexer:        indexer.Name(),
		IndexerParams:  indexer.Params(),
		Fields:         vectorizer.Names(),
		Seed:           cfg.Seed,
	}
	log = log.With(zap.String("run_id", summary.RunID))
	ctx = logger.ContextWithLogger(ctx, log)

	// load
	start := time.Now()
	in, err := LoadInputs(ctx, cfg, issues)
	if err != nil {
		return nil, err
	}
	summary.RecordsA = in.A.Len()
	summary.RecordsB = in.B.Len()
	summary.TruthPairs = in.Truth.Len()
	opts.Recorder.RecordsLoaded("a", in.A.Len())
	opts.Recorder.RecordsLoaded("b", in.B.Len())
	stage(summary, opts, "load", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// index
	start = time.Now()
	candidates, err := indexer.Index(in.A, in.B, issues)
	if err != nil {
		return nil, fmt.Errorf("failed to index: %w", err)
	}
	summary.Blocking = metrics.EvaluateBlocking(candidates, in.Truth, in.A.Len(), in.B.Len())
	opts.Recorder.CandidatePairs(indexer.Name(), candidates.Len())
	stage(summary, opts, "index", start)
	log.Info("Indexed candidate pairs",
		zap.String("indexer", indexer.Name()),
		zap.Int("candidates", candidates.Len()),
		zap.Float64("pair_completeness", summary.Blocking.PairCompleteness),
		zap.Float64("reduction_ratio", summary.Blocking.ReductionRatio))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// compare
	start = time.Now()
	features, err := vectorizer.Vectorize(ctx, candidates, in.A, in.B, issues)
	if err != nil {
		return nil, fmt.Errorf("failed to compare candidates: %w", err)
	}
	opts.Recorder.Comparisons(features.Len() * len(features.Names))
	if cfg.Output.FeaturesFile != "" {
		if err := compare.WriteParquet(cfg.Output.FeaturesFile, features, in.Truth); err != nil {
			return nil, err
		}
		log.Info("Wrote feature vectors", zap.String("path", cfg.Output.FeaturesFile))
	}
	stage(summary, opts, "compare", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// classify
	golden := classify.SampleGolden(candidates, in.Truth, cfg.GoldenPairs, cfg.Seed)
	summary.GoldenPairs = len(golden.Pairs)
	summary.GoldenMatches = golden.Matches()
	log.Debug("Sampled golden pairs",
		zap.Int("pairs", summary.GoldenPairs),
		zap.Int("matches", summary.GoldenMatches))

	resultsLog := results.NewLog(cfg.Output.ResultsLog)
	for _, c := range classifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start = time.Now()
		res, err := runClassifier(c, features, golden, candidates, in.Truth, cfg, issues)
		if err != nil {
			return nil, err
		}
		res.ProcessingTime = time.Since(start)
		summary.Classifiers = append(summary.Classifiers, res)
		opts.Recorder.FMeasure(c.Name(), res.Evaluation.FMeasure)
		stage(summary, opts, "classify:"+c.Name(), start)

		if res.Untrained {
			log.Warn("No golden pairs among the candidates, classifier left untrained",
				zap.String("classifier", c.Name()))
		}
		log.Info("Evaluated classifier",
			zap.String("classifier", c.Name()),
			zap.Int("decided", res.Evaluation.Decided),
			zap.Float64("precision", res.Evaluation.Precision),
			zap.Float64("recall", res.Evaluation.Recall),
			zap.Float64("f_measure", res.Evaluation.FMeasure))

		if cfg.Output.ResultsLog != "" {
			meta := runMetadata(summary, cfg, opts.ConfigPath, candidates.Len())
			for k, v := range c.Params() {
				meta[k] = v
			}
			meta["label"] = c.Name()
			if err := resultsLog.Append(results.Result{
				RunID:      summary.RunID,
				Timestamp:  summary.EvaluationDate,
				Evaluation: res.Evaluation,
				Metadata:   meta,
			}); err != nil {
				return nil, err
			}
		}
	}

	summary.Issues = issues.Map()
	opts.Recorder.DataIssues(summary.Issues)
	logIssues(log, issues)

	if cfg.Output.EvalsDir != "" {
		path, err := results.SaveToYAML(cfg.Output.EvalsDir, opts.ConfigPath, summary)
		if err != nil {
			return nil, err
		}
		log.Info("Saved run snapshot", zap.String("path", path))
	}
	if err := opts.Recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		return nil, err
	}

	return summary, nil
}

func stage(s *metrics.RunSummary, opts Options, name string, start time.Time) {
	d := time.Since(start)
	s.AddStage(name, d)
	opts.Recorder.StageDuration(name, d)
}

// runClassifier trains, predicts and evaluates c. A classifier without
// any labelled candidate stays untrained and is counted as
// no_training_data; the run goes on.
func runClassifier(c classify.Classifier, features *compare.Features, golden classify.Golden, candidates, truth *domain.PairSet, cfg config.Config, issues *domain.Issues) (metrics.ClassifierResult, error) {
	res := metrics.ClassifierResult{Name: c.Name(), Params: c.Params()}

	if err := c.Train(trainingVectors(features, golden), golden.Labels); err != nil {
		if !errors.Is(err, classify.ErrNoTrainingData) {
			return res, fmt.Errorf("failed to train %s: %w", c.Name(), err)
		}
		issues.Add(domain.IssueNoTrainingData, 1)
		res.Untrained = true
	}
	decided := c.Predict(features.Vectors)
	res.Evaluation = metrics.Evaluate(decided, truth, candidates)

	if cfg.Output.MappingDir != "" {
		path := filepath.Join(cfg.Output.MappingDir, "mapping_"+c.Name()+".csv")
		if err := WriteMapping(path, features, decided, c); err != nil {
			return res, err
		}
		res.MappingPath = path
	}
	return res, nil
}

// trainingVectors selects the feature vectors of the golden pairs in
// sample order.
func trainingVectors(features *compare.Features, golden classify.Golden) []compare.FeatureVector {
	if len(golden.Pairs) == 0 {
		return nil
	}
	byPair := make(map[domain.Pair]int, features.Len())
	for i, v := range features.Vectors {
		byPair[v.Pair] = i
	}
	out := make([]compare.FeatureVector, 0, len(golden.Pairs))
	for _, p := range golden.Pairs {
		if i, ok := byPair[p]; ok {
			out = append(out, features.Vectors[i])
		}
	}
	return out
}

func runMetadata(s *metrics.RunSummary, cfg config.Config, configPath string, candidates int) map[string]string {
	meta := map[string]string{
		"indexer":           s.Indexer,
		"fields":            strings.Join(s.Fields, ";"),
		"golden_pairs":      strconv.Itoa(s.GoldenPairs),
		"golden_matches":    strconv.Itoa(s.GoldenMatches),
		"seed":              strconv.FormatUint(cfg.Seed, 10),
		"records_a":         strconv.Itoa(s.RecordsA),
		"records_b":         strconv.Itoa(s.RecordsB),
		"candidates":        strconv.Itoa(candidates),
		"pair_completeness": strconv.FormatFloat(s.Blocking.PairCompleteness, 'f', 6, 64),
		"reduction_ratio":   strconv.FormatFloat(s.Blocking.ReductionRatio, 'f', 6, 64),
	}
	for k, v := range s.IndexerParams {
		meta[k] = v
	}
	if configPath != "" {
		meta["config"] = configPath
	}
	if host, err := os.Hostname(); err == nil {
		meta["host"] = host
	}
	return meta
}

// logIssues writes one warning per recorded kind of data issue.
func logIssues(log *zap.Logger, issues *domain.Issues) {
	for _, kind := range issues.Kinds() {
		log.Warn("Data issues", zap.String("kind", kind), zap.Int("count", issues.Count(kind)))
	}
}
