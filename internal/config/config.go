package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	routererrors "github.com/foldermind/router/internal/errors"
)

// Config is the complete router configuration. It mirrors the YAML shape
// documented for the routing engine: thresholds, scoring weights, batch
// and clustering knobs, centroid management, policy-LLM budgets, stage
// timeouts and concurrency limits.
type Config struct {
	Thresholds  ThresholdsConfig  `yaml:"thresholds" json:"thresholds"`
	Scoring     ScoringConfig     `yaml:"scoring" json:"scoring"`
	Batch       BatchConfig       `yaml:"batch" json:"batch"`
	Clustering  ClusteringConfig  `yaml:"clustering" json:"clustering"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Centroid    CentroidConfig    `yaml:"centroid" json:"centroid"`
	PolicyLLM   PolicyLLMConfig   `yaml:"policy_llm" json:"policy_llm"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts" json:"timeouts"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
}

// ThresholdsConfig holds the similarity cutoffs that drive routing decisions.
type ThresholdsConfig struct {
	HighConfidence  float64 `yaml:"high_confidence" json:"high_confidence"`
	LowConfidence   float64 `yaml:"low_confidence" json:"low_confidence"`
	NewTopic        float64 `yaml:"new_topic" json:"new_topic"`
	Duplicate       float64 `yaml:"duplicate" json:"duplicate"`
	FolderPlacement float64 `yaml:"folder_placement" json:"folder_placement"`
	CrossLinkDelta  float64 `yaml:"cross_link_delta" json:"cross_link_delta"`
	CrossLinkMin    float64 `yaml:"cross_link_min" json:"cross_link_min"`
}

// ScoringConfig holds the FolderScorer weighting.
type ScoringConfig struct {
	WAvg      float64 `yaml:"w_avg" json:"w_avg"`
	WMax      float64 `yaml:"w_max" json:"w_max"`
	BonusMult float64 `yaml:"bonus_mult" json:"bonus_mult"`
	MaxBonus  float64 `yaml:"max_bonus" json:"max_bonus"`
}

// BatchConfig controls batch clustering behavior.
type BatchConfig struct {
	MinClusterSize        int  `yaml:"min_cluster_size" json:"min_cluster_size"`
	EnableBatchClustering bool `yaml:"enable_batch_clustering" json:"enable_batch_clustering"`
	EnableFolderCreation  bool `yaml:"enable_folder_creation" json:"enable_folder_creation"`
}

// ClusteringConfig controls the greedy single-link agglomeration in BatchClusterer.
type ClusteringConfig struct {
	ClusterSimilarityThreshold  float64 `yaml:"cluster_similarity_threshold" json:"cluster_similarity_threshold"`
	UnsortedSimilarityThreshold float64 `yaml:"unsorted_similarity_threshold" json:"unsorted_similarity_threshold"`
	UnsortedSearchLimit         int     `yaml:"unsorted_search_limit" json:"unsorted_search_limit"`
	MaxClusterSize              int     `yaml:"max_cluster_size" json:"max_cluster_size"`
}

// SearchConfig bounds the vector index lookups FolderMatcher and
// DuplicateDetector issue.
type SearchConfig struct {
	TitleSearchLimit   int `yaml:"title_search_limit" json:"title_search_limit"`
	ContextSearchLimit int `yaml:"context_search_limit" json:"context_search_limit"`
}

// CentroidConfig controls CentroidManager's exemplar and quality bookkeeping.
type CentroidConfig struct {
	ExemplarCount        int     `yaml:"exemplar_count" json:"exemplar_count"`
	ExemplarStrategy     string  `yaml:"exemplar_strategy" json:"exemplar_strategy"`
	IncrementalThreshold int     `yaml:"incremental_threshold" json:"incremental_threshold"`
	StabilityFloor       float64 `yaml:"stability_floor" json:"stability_floor"`
	RedundancyThreshold  float64 `yaml:"redundancy_threshold" json:"redundancy_threshold"`
	ContextTokenBudget   int     `yaml:"context_token_budget" json:"context_token_budget"`
	TokensPerFolder      int     `yaml:"tokens_per_folder" json:"tokens_per_folder"`
}

// PolicyLLMConfig bounds the optional LLM-assisted decision step.
type PolicyLLMConfig struct {
	DailyTokenBudget     int           `yaml:"daily_token_budget" json:"daily_token_budget"`
	MaxTokensPerDecision int           `yaml:"max_tokens_per_decision" json:"max_tokens_per_decision"`
	CacheTimeout         time.Duration `yaml:"cache_timeout" json:"cache_timeout"`
}

// TimeoutsConfig bounds each pipeline stage.
type TimeoutsConfig struct {
	Distill time.Duration `yaml:"distill" json:"distill"`
	Embed   time.Duration `yaml:"embed" json:"embed"`
	Index   time.Duration `yaml:"index" json:"index"`
}

// ConcurrencyConfig bounds parallel candidate processing.
type ConcurrencyConfig struct {
	MaxInFlight int `yaml:"max_in_flight" json:"max_in_flight"`
}

// Default returns the built-in configuration, matching the reference
// YAML shape documented in SPEC_FULL.md.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdsConfig{
			HighConfidence:  0.82,
			LowConfidence:   0.65,
			NewTopic:        0.5,
			Duplicate:       0.9,
			FolderPlacement: 0.70,
			CrossLinkDelta:  0.1,
			CrossLinkMin:    0.55,
		},
		Scoring: ScoringConfig{
			WAvg:      0.6,
			WMax:      0.2,
			BonusMult: 0.1,
			MaxBonus:  0.3,
		},
		Batch: BatchConfig{
			MinClusterSize:        3,
			EnableBatchClustering: true,
			EnableFolderCreation:  true,
		},
		Clustering: ClusteringConfig{
			ClusterSimilarityThreshold:  0.7,
			UnsortedSimilarityThreshold: 0.72,
			UnsortedSearchLimit:         50,
			MaxClusterSize:              200,
		},
		Search: SearchConfig{
			TitleSearchLimit:   1,
			ContextSearchLimit: 50,
		},
		Centroid: CentroidConfig{
			ExemplarCount:        5,
			ExemplarStrategy:     "hybrid",
			IncrementalThreshold: 32,
			StabilityFloor:       0.5,
			RedundancyThreshold:  0.9,
			ContextTokenBudget:   4000,
			TokensPerFolder:      40,
		},
		PolicyLLM: PolicyLLMConfig{
			DailyTokenBudget:     200000,
			MaxTokensPerDecision: 1500,
			CacheTimeout:         10 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Distill: 45 * time.Second,
			Embed:   30 * time.Second,
			Index:   10 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			MaxInFlight: 8,
		},
	}
}

// Load reads YAML configuration from path, merges it onto Default(),
// applies ROUTER_* environment overrides, and validates the result.
// A missing file is not an error: Default() is returned as-is (after
// env overrides and validation).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, routererrors.ConfigErr(fmt.Sprintf("stat config file %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return routererrors.ConfigErr(fmt.Sprintf("read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return routererrors.ConfigErr(fmt.Sprintf("parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Thresholds.HighConfidence != 0 {
		c.Thresholds.HighConfidence = other.Thresholds.HighConfidence
	}
	if other.Thresholds.LowConfidence != 0 {
		c.Thresholds.LowConfidence = other.Thresholds.LowConfidence
	}
	if other.Thresholds.NewTopic != 0 {
		c.Thresholds.NewTopic = other.Thresholds.NewTopic
	}
	if other.Thresholds.Duplicate != 0 {
		c.Thresholds.Duplicate = other.Thresholds.Duplicate
	}
	if other.Thresholds.FolderPlacement != 0 {
		c.Thresholds.FolderPlacement = other.Thresholds.FolderPlacement
	}
	if other.Thresholds.CrossLinkDelta != 0 {
		c.Thresholds.CrossLinkDelta = other.Thresholds.CrossLinkDelta
	}
	if other.Thresholds.CrossLinkMin != 0 {
		c.Thresholds.CrossLinkMin = other.Thresholds.CrossLinkMin
	}

	if other.Scoring.WAvg != 0 {
		c.Scoring.WAvg = other.Scoring.WAvg
	}
	if other.Scoring.WMax != 0 {
		c.Scoring.WMax = other.Scoring.WMax
	}
	if other.Scoring.BonusMult != 0 {
		c.Scoring.BonusMult = other.Scoring.BonusMult
	}
	if other.Scoring.MaxBonus != 0 {
		c.Scoring.MaxBonus = other.Scoring.MaxBonus
	}

	if other.Batch.MinClusterSize != 0 {
		c.Batch.MinClusterSize = other.Batch.MinClusterSize
	}
	c.Batch.EnableBatchClustering = other.Batch.EnableBatchClustering || c.Batch.EnableBatchClustering
	c.Batch.EnableFolderCreation = other.Batch.EnableFolderCreation || c.Batch.EnableFolderCreation

	if other.Clustering.ClusterSimilarityThreshold != 0 {
		c.Clustering.ClusterSimilarityThreshold = other.Clustering.ClusterSimilarityThreshold
	}
	if other.Clustering.UnsortedSimilarityThreshold != 0 {
		c.Clustering.UnsortedSimilarityThreshold = other.Clustering.UnsortedSimilarityThreshold
	}
	if other.Clustering.UnsortedSearchLimit != 0 {
		c.Clustering.UnsortedSearchLimit = other.Clustering.UnsortedSearchLimit
	}
	if other.Clustering.MaxClusterSize != 0 {
		c.Clustering.MaxClusterSize = other.Clustering.MaxClusterSize
	}

	if other.Search.TitleSearchLimit != 0 {
		c.Search.TitleSearchLimit = other.Search.TitleSearchLimit
	}
	if other.Search.ContextSearchLimit != 0 {
		c.Search.ContextSearchLimit = other.Search.ContextSearchLimit
	}

	if other.Centroid.ExemplarCount != 0 {
		c.Centroid.ExemplarCount = other.Centroid.ExemplarCount
	}
	if other.Centroid.ExemplarStrategy != "" {
		c.Centroid.ExemplarStrategy = other.Centroid.ExemplarStrategy
	}
	if other.Centroid.IncrementalThreshold != 0 {
		c.Centroid.IncrementalThreshold = other.Centroid.IncrementalThreshold
	}
	if other.Centroid.StabilityFloor != 0 {
		c.Centroid.StabilityFloor = other.Centroid.StabilityFloor
	}
	if other.Centroid.RedundancyThreshold != 0 {
		c.Centroid.RedundancyThreshold = other.Centroid.RedundancyThreshold
	}
	if other.Centroid.ContextTokenBudget != 0 {
		c.Centroid.ContextTokenBudget = other.Centroid.ContextTokenBudget
	}
	if other.Centroid.TokensPerFolder != 0 {
		c.Centroid.TokensPerFolder = other.Centroid.TokensPerFolder
	}

	if other.PolicyLLM.DailyTokenBudget != 0 {
		c.PolicyLLM.DailyTokenBudget = other.PolicyLLM.DailyTokenBudget
	}
	if other.PolicyLLM.MaxTokensPerDecision != 0 {
		c.PolicyLLM.MaxTokensPerDecision = other.PolicyLLM.MaxTokensPerDecision
	}
	if other.PolicyLLM.CacheTimeout != 0 {
		c.PolicyLLM.CacheTimeout = other.PolicyLLM.CacheTimeout
	}

	if other.Timeouts.Distill != 0 {
		c.Timeouts.Distill = other.Timeouts.Distill
	}
	if other.Timeouts.Embed != 0 {
		c.Timeouts.Embed = other.Timeouts.Embed
	}
	if other.Timeouts.Index != 0 {
		c.Timeouts.Index = other.Timeouts.Index
	}

	if other.Concurrency.MaxInFlight != 0 {
		c.Concurrency.MaxInFlight = other.Concurrency.MaxInFlight
	}
}

// applyEnvOverrides applies ROUTER_* environment variable overrides,
// highest precedence after the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUTER_HIGH_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.HighConfidence = f
		}
	}
	if v := os.Getenv("ROUTER_LOW_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.LowConfidence = f
		}
	}
	if v := os.Getenv("ROUTER_DUPLICATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Thresholds.Duplicate = f
		}
	}
	if v := os.Getenv("ROUTER_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency.MaxInFlight = n
		}
	}
	if v := os.Getenv("ROUTER_EXEMPLAR_STRATEGY"); v != "" {
		c.Centroid.ExemplarStrategy = v
	}
	if v := os.Getenv("ROUTER_DAILY_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.PolicyLLM.DailyTokenBudget = n
		}
	}
}

// Validate enforces the cross-field invariants the routing decisions
// depend on. It is called at load time so that a misconfigured
// threshold ordering fails fast rather than surfacing as an inscrutable
// decision downstream.
func (c *Config) Validate() error {
	t := c.Thresholds

	if t.Duplicate < t.HighConfidence {
		return routererrors.ThresholdOrderingErr(
			fmt.Sprintf("duplicate (%.2f) must be >= high_confidence (%.2f)", t.Duplicate, t.HighConfidence))
	}
	if t.HighConfidence < t.LowConfidence {
		return routererrors.ThresholdOrderingErr(
			fmt.Sprintf("high_confidence (%.2f) must be >= low_confidence (%.2f)", t.HighConfidence, t.LowConfidence))
	}
	if t.LowConfidence < t.NewTopic {
		return routererrors.ThresholdOrderingErr(
			fmt.Sprintf("low_confidence (%.2f) must be >= new_topic (%.2f)", t.LowConfidence, t.NewTopic))
	}
	if t.FolderPlacement < t.NewTopic || t.FolderPlacement > t.HighConfidence {
		return routererrors.ThresholdOrderingErr(
			fmt.Sprintf("folder_placement (%.2f) must be within [new_topic (%.2f), high_confidence (%.2f)]",
				t.FolderPlacement, t.NewTopic, t.HighConfidence))
	}

	if c.Scoring.WAvg < 0 || c.Scoring.WMax < 0 {
		return routererrors.ConfigErr("scoring weights must be non-negative", nil)
	}

	validStrategies := map[string]bool{"diverse": true, "boundary": true, "medoid": true, "hybrid": true}
	if !validStrategies[strings.ToLower(c.Centroid.ExemplarStrategy)] {
		return routererrors.ConfigErr(
			fmt.Sprintf("centroid.exemplar_strategy must be diverse, boundary, medoid, or hybrid, got %q", c.Centroid.ExemplarStrategy), nil)
	}

	if c.Batch.MinClusterSize < 1 {
		return routererrors.ConfigErr("batch.min_cluster_size must be >= 1", nil)
	}
	if c.Concurrency.MaxInFlight < 1 {
		return routererrors.ConfigErr("concurrency.max_in_flight must be >= 1", nil)
	}

	return nil
}

// WriteYAML writes the configuration to path as YAML that Load can
// read back.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return routererrors.InternalErr("marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return routererrors.ConfigErr(fmt.Sprintf("write config file %s", path), err)
	}
	return nil
}

// DefaultConfigPath returns ~/.foldermind/config.yaml, following the
// XDG_CONFIG_HOME convention when set.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "foldermind", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".foldermind", "config.yaml")
	}
	return filepath.Join(home, ".foldermind", "config.yaml")
}
