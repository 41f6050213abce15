// Package config loads the YAML run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/linker/internal/classify"
	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Config holds a linkage run configuration.
type Config struct {
	Sources     SourcesConfig      `yaml:"sources"`
	Fields      []FieldConfig      `yaml:"fields"`
	Indexer     IndexerConfig      `yaml:"indexer"`
	Classifiers []classify.Options `yaml:"classifiers"`
	GoldenPairs int                `yaml:"golden_pairs"`
	Seed        uint64             `yaml:"seed"`
	Study       StudyConfig        `yaml:"study"`
	Output      OutputConfig       `yaml:"output"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// SourcesConfig names the two record collections and the ground truth.
type SourcesConfig struct {
	A     SourceConfig `yaml:"a"`
	B     SourceConfig `yaml:"b"`
	Truth TruthConfig  `yaml:"truth"`
}

// SourceConfig describes one record file.
type SourceConfig struct {
	Path          string   `yaml:"path"`
	IDColumn      string   `yaml:"id_column"`
	Delimiter     string   `yaml:"delimiter"` // single character or "tab" (default ",")
	Encoding      string   `yaml:"encoding"`  // utf-8, latin-1, windows-1252 (default utf-8)
	NumericFields []string `yaml:"numeric_fields"`
	Sample        int      `yaml:"sample"` // load only the first N records, 0 = all
}

// TruthConfig describes the ground-truth mapping file.
type TruthConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
}

// FieldConfig selects the comparison method of one field.
type FieldConfig struct {
	Name         string  `yaml:"name"`
	Method       string  `yaml:"method"`
	MissingValue float64 `yaml:"missing_value"`
}

// StudyConfig holds compare-methods study settings.
type StudyConfig struct {
	Field     string `yaml:"field"`
	Ratio     int    `yaml:"ratio"` // non-matches sampled per match (default 10)
	Bins      int    `yaml:"bins"`  // histogram bins (default 25)
	OutputDir string `yaml:"output_dir"`
}

// OutputConfig holds output locations. Empty paths disable the output,
// except where a default applies.
type OutputConfig struct {
	ResultsLog   string `yaml:"results_log"`
	MappingDir   string `yaml:"mapping_dir"`
	EvalsDir     string `yaml:"evals_dir"`
	FeaturesFile string `yaml:"features_file"` // optional Parquet export of feature vectors
	MetricsFile  string `yaml:"metrics_file"`  // optional Prometheus text file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file, expands ${VAR} references,
// fills defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	for _, s := range []*SourceConfig{&c.Sources.A, &c.Sources.B} {
		if s.Delimiter == "" {
			s.Delimiter = ","
		}
		if s.Encoding == "" {
			s.Encoding = "utf-8"
		}
	}
	if c.Sources.Truth.Delimiter == "" {
		c.Sources.Truth.Delimiter = ","
	}
	if len(c.Classifiers) == 0 {
		c.Classifiers = []classify.Options{{Type: classify.TypeThreshold}}
	}
	for i := range c.Classifiers {
		c.Classifiers[i].ApplyDefaults()
	}
	if c.GoldenPairs == 0 {
		c.GoldenPairs = 100
	}
	if c.Seed == 0 {
		c.Seed = classify.DefaultSeed
	}
	if c.Study.Ratio <= 0 {
		c.Study.Ratio = 10
	}
	if c.Study.Bins == 0 {
		c.Study.Bins = 25
	}
	if c.Study.OutputDir == "" {
		c.Study.OutputDir = "compare-methods"
	}
	if c.Output.ResultsLog == "" {
		c.Output.ResultsLog = "results.csv"
	}
	if c.Output.MappingDir == "" {
		c.Output.MappingDir = "mappings"
	}
	if c.Output.EvalsDir == "" {
		c.Output.EvalsDir = "evals"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

// Validate checks the configuration for correctness. Errors wrap
// domain.ErrInvalidConfig and name the offending parameter.
func (c *Config) Validate() error {
	for _, s := range []struct {
		param string
		src   SourceConfig
	}{{"sources.a", c.Sources.A}, {"sources.b", c.Sources.B}} {
		if s.src.Path == "" {
			return domain.NewConfigError(s.param+".path", "is required")
		}
		if s.src.IDColumn == "" {
			return domain.NewConfigError(s.param+".id_column", "is required")
		}
		if _, err := ParseDelimiter(s.param+".delimiter", s.src.Delimiter); err != nil {
			return err
		}
		switch strings.ToLower(s.src.Encoding) {
		case "utf-8", "utf8", "latin-1", "latin1", "iso-8859-1", "windows-1252", "cp1252":
		default:
			return domain.NewConfigError(s.param+".encoding", "unsupported encoding %q", s.src.Encoding)
		}
		if s.src.Sample < 0 {
			return domain.NewConfigError(s.param+".sample", "must not be negative, got %d", s.src.Sample)
		}
	}
	if _, err := ParseDelimiter("sources.truth.delimiter", c.Sources.Truth.Delimiter); err != nil {
		return err
	}

	if len(c.Fields) == 0 {
		return domain.NewConfigError("fields", "must list at least one field")
	}
	for i, f := range c.Fields {
		if f.Name == "" {
			return domain.NewConfigError(fmt.Sprintf("fields[%d].name", i), "is required")
		}
		if !compare.Known(f.Method) {
			return domain.NewConfigError(fmt.Sprintf("fields[%d].method", i),
				"must be one of %s, got %q", strings.Join(compare.Methods(), ", "), f.Method)
		}
	}

	if err := c.Indexer.Validate("indexer"); err != nil {
		return err
	}

	labels := make(map[string]bool, len(c.Classifiers))
	needsGolden := false
	for i, opts := range c.Classifiers {
		param := fmt.Sprintf("classifiers[%d]", i)
		if err := opts.Validate(param); err != nil {
			return err
		}
		if labels[opts.Label] {
			return domain.NewConfigError(param+".label", "duplicate classifier label %q", opts.Label)
		}
		labels[opts.Label] = true
		if opts.Type == classify.TypeLogistic {
			needsGolden = true
		}
	}
	if c.GoldenPairs < 0 || (needsGolden && c.GoldenPairs < 2) {
		return domain.NewConfigError("golden_pairs", "must be at least 2 for supervised classifiers, got %d", c.GoldenPairs)
	}

	if c.Study.Bins < 1 {
		return domain.NewConfigError("study.bins", "must be at least 1, got %d", c.Study.Bins)
	}

	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return domain.NewConfigError("logging.env", "must be local, dev or prod, got %q", c.Logging.Env)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return domain.NewConfigError("logging.level", "must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// CompareFields converts the field list for the vectorizer.
func (c *Config) CompareFields() []compare.Field {
	out := make([]compare.Field, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = compare.Field{Name: f.Name, Method: f.Method, MissingValue: f.MissingValue}
	}
	return out
}

// FieldNames returns the distinct compared field names in order.
func (c *Config) FieldNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range c.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f.Name)
		}
	}
	return out
}

// ParseDelimiter converts a configured delimiter to a rune. "tab" and "\t"
// both mean a tab character.
func ParseDelimiter(param, s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, domain.NewConfigError(param, "must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, domain.NewConfigError(param, "cannot be %q", s)
	}
	return r, nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
