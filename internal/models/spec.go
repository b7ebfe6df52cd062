package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default models used when a role list is left empty.
var DefaultModels = []string{
	"google/gemini-2.5-pro",
	"openai/gpt-5",
	"anthropic/claude-sonnet-4.5",
}

const (
	DefaultAPIURL          = "https://openrouter.ai/api/v1/chat/completions"
	DefaultMaxRetries      = 5
	DefaultInitialBackoff  = time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxTokens       = 10000
	DefaultMaxWorkers      = 10
	DefaultMaxDrawAttempts = 50
	DefaultOutputDir       = "outputs"
)

// DefaultMetrics are the deterministic metrics computed for solvable responses.
var DefaultMetrics = []string{"token_f1", "meteor", "rouge_l", "symbol_f1"}

// DrawMode selects how an orchestrator consumes a question source.
type DrawMode string

const (
	DrawRandom     DrawMode = "random"
	DrawSequential DrawMode = "sequential"
)

// SourceKind selects a question source implementation.
type SourceKind string

const (
	SourceFileSet SourceKind = "fileset"
	SourceList    SourceKind = "list"
)

// BenchmarkSpec is a complete benchmark definition loaded from YAML.
type BenchmarkSpec struct {
	Name        string        `yaml:"name" json:"name" validate:"required"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Models      ModelRoles    `yaml:"models" json:"models"`
	Datasets    Datasets      `yaml:"datasets" json:"datasets"`
	Config      RunConfig     `yaml:"config" json:"config"`
	Gateway     GatewayConfig `yaml:"gateway" json:"gateway"`
	Prompts     Prompts       `yaml:"prompts,omitempty" json:"prompts,omitempty"`
	Claims      ClaimsConfig  `yaml:"claims,omitempty" json:"claims,omitempty"`
}

// ModelRoles lists the model ids for each client role, in canonical order.
type ModelRoles struct {
	Solvers    []string `yaml:"solvers" json:"solvers" validate:"unique,dive,required"`
	Theorists  []string `yaml:"theorists" json:"theorists" validate:"unique,dive,required"`
	Evaluators []string `yaml:"evaluators" json:"evaluators" validate:"unique,dive,required"`
	Rankers    []string `yaml:"rankers" json:"rankers" validate:"unique,dive,required"`
}

// Datasets configures one source per category.
type Datasets struct {
	Solvable   *DatasetConfig `yaml:"solvable,omitempty" json:"solvable,omitempty"`
	Unsolvable *DatasetConfig `yaml:"unsolvable,omitempty" json:"unsolvable,omitempty"`
}

// DatasetConfig describes where questions come from and which payload
// fields carry the question and answer.
type DatasetConfig struct {
	Kind          SourceKind `yaml:"kind" json:"kind" validate:"required,oneof=fileset list"`
	Path          string     `yaml:"path" json:"path" validate:"required"`
	Draw          DrawMode   `yaml:"draw,omitempty" json:"draw,omitempty" validate:"omitempty,oneof=random sequential"`
	QuestionField string     `yaml:"question_field,omitempty" json:"question_field,omitempty"`
	AnswerField   string     `yaml:"answer_field,omitempty" json:"answer_field,omitempty"`
	CacheSize     int        `yaml:"cache_size,omitempty" json:"cache_size,omitempty" validate:"gte=0"`
}

// RunConfig controls iteration counts and output.
type RunConfig struct {
	SolvableIterations   int      `yaml:"solvable_iterations" json:"solvable_iterations" validate:"gte=0"`
	UnsolvableIterations int      `yaml:"unsolvable_iterations" json:"unsolvable_iterations" validate:"gte=0"`
	MaxWorkers           int      `yaml:"max_workers,omitempty" json:"max_workers,omitempty" validate:"gte=0"`
	OutputDir            string   `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	MaxDrawAttempts      int      `yaml:"max_draw_attempts,omitempty" json:"max_draw_attempts,omitempty" validate:"gte=0"`
	Metrics              []string `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// GatewayConfig holds the model API client settings.
type GatewayConfig struct {
	APIURL            string        `yaml:"api_url,omitempty" json:"api_url,omitempty" validate:"omitempty,url"`
	MaxRetries        int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty" validate:"gte=0"`
	InitialBackoff    time.Duration `yaml:"initial_backoff,omitempty" json:"initial_backoff,omitempty" validate:"gte=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout,omitempty" json:"request_timeout,omitempty" validate:"gte=0"`
	MaxTokens         int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" validate:"gte=0"`
	CacheDir          string        `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

// Prompts overrides the embedded default system prompts.
type Prompts struct {
	Solver    string `yaml:"solver,omitempty" json:"solver,omitempty"`
	Theorist  string `yaml:"theorist,omitempty" json:"theorist,omitempty"`
	Evaluator string `yaml:"evaluator,omitempty" json:"evaluator,omitempty"`
	Ranker    string `yaml:"ranker,omitempty" json:"ranker,omitempty"`
}

// ClaimsConfig selects how processed questions are claimed.
type ClaimsConfig struct {
	Backend  string        `yaml:"backend,omitempty" json:"backend,omitempty" validate:"omitempty,oneof=file redis"`
	RedisURL string        `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// LoadBenchmarkSpec loads a spec from a YAML file, applies defaults and
// validates it.
func LoadBenchmarkSpec(path string) (*BenchmarkSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBenchmarkSpec(data)
}

// ParseBenchmarkSpec parses YAML spec content.
func ParseBenchmarkSpec(data []byte) (*BenchmarkSpec, error) {
	var spec BenchmarkSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing benchmark spec: %w", err)
	}

	spec.ApplyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// ApplyDefaults fills unset fields with their default values.
func (s *BenchmarkSpec) ApplyDefaults() {
	fill := func(v *[]string) {
		if len(*v) == 0 {
			*v = append([]string(nil), DefaultModels...)
		}
	}
	fill(&s.Models.Solvers)
	fill(&s.Models.Theorists)
	fill(&s.Models.Evaluators)
	fill(&s.Models.Rankers)

	if d := s.Datasets.Solvable; d != nil {
		if d.Draw == "" {
			d.Draw = DrawRandom
		}
		if d.QuestionField == "" {
			d.QuestionField = "message_1"
		}
		if d.AnswerField == "" {
			d.AnswerField = "message_2"
		}
	}
	if d := s.Datasets.Unsolvable; d != nil {
		if d.Draw == "" {
			d.Draw = DrawSequential
		}
		if d.QuestionField == "" {
			d.QuestionField = "question"
		}
	}

	if s.Config.MaxWorkers == 0 {
		s.Config.MaxWorkers = DefaultMaxWorkers
	}
	if s.Config.OutputDir == "" {
		s.Config.OutputDir = DefaultOutputDir
	}
	if s.Config.MaxDrawAttempts == 0 {
		s.Config.MaxDrawAttempts = DefaultMaxDrawAttempts
	}
	if len(s.Config.Metrics) == 0 {
		s.Config.Metrics = append([]string(nil), DefaultMetrics...)
	}

	if s.Gateway.APIURL == "" {
		s.Gateway.APIURL = DefaultAPIURL
	}
	if s.Gateway.MaxRetries == 0 {
		s.Gateway.MaxRetries = DefaultMaxRetries
	}
	if s.Gateway.InitialBackoff == 0 {
		s.Gateway.InitialBackoff = DefaultInitialBackoff
	}
	if s.Gateway.RequestTimeout == 0 {
		s.Gateway.RequestTimeout = DefaultRequestTimeout
	}
	if s.Gateway.MaxTokens == 0 {
		s.Gateway.MaxTokens = DefaultMaxTokens
	}

	if s.Claims.Backend == "" {
		s.Claims.Backend = "file"
	}
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express.
func (s *BenchmarkSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid benchmark spec: %w", err)
	}
	if s.Config.SolvableIterations > 0 && s.Datasets.Solvable == nil {
		return errors.New("solvable_iterations set but datasets.solvable is missing")
	}
	if s.Config.UnsolvableIterations > 0 && s.Datasets.Unsolvable == nil {
		return errors.New("unsolvable_iterations set but datasets.unsolvable is missing")
	}
	if d := s.Datasets.Solvable; d != nil && d.AnswerField == "" {
		return errors.New("datasets.solvable.answer_field is required")
	}
	if s.Claims.Backend == "redis" && s.Claims.RedisURL == "" {
		return errors.New("claims.redis_url is required for the redis backend")
	}
	return nil
}
