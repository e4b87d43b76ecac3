package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ThresholdsConfig holds the fixed numbers of the scoring pipeline: engine
// weights, boost cap, tier thresholds, gate minimums. It is loaded from a
// single YAML document, with DefaultThresholds() providing the shipped
// values when no file is supplied. The formula itself is NOT configurable;
// only the numeric constants it references are.
type ThresholdsConfig struct {
	EngineWeights  EngineWeights  `yaml:"engine_weights"`
	TotalBoostCap  float64        `yaml:"total_boost_cap"`
	TierThresholds TierThresholds `yaml:"tier_thresholds"`
	OutputMinimums OutputMinimums `yaml:"output_minimums"`
	GoldStarGates  GoldStarGates  `yaml:"gold_star_gates"`
}

// EngineWeights are the four base-engine weights. Fixed in production;
// kept configurable only so an operator can run a shadow experiment without
// a code change.
type EngineWeights struct {
	AI       float64 `yaml:"ai"`
	Research float64 `yaml:"research"`
	Esoteric float64 `yaml:"esoteric"`
	Jarvis   float64 `yaml:"jarvis"`
}

// TierThresholds are the final_score cutoffs for each tier.
type TierThresholds struct {
	TitaniumSmash float64 `yaml:"titanium_smash"`
	GoldStar      float64 `yaml:"gold_star"`
	EdgeLean      float64 `yaml:"edge_lean"`
	Monitor       float64 `yaml:"monitor"`
}

// OutputMinimums are the final output score thresholds applied after tier
// assignment: games vs player props.
type OutputMinimums struct {
	Games       float64 `yaml:"games"`
	PlayerProps float64 `yaml:"player_props"`
}

// GoldStarGates are the hard per-engine minimums for GOLD_STAR.
type GoldStarGates struct {
	AIMin       float64 `yaml:"ai_min"`
	ResearchMin float64 `yaml:"research_min"`
	JarvisMin   float64 `yaml:"jarvis_min"`
	EsotericMin float64 `yaml:"esoteric_min"`
}

// DefaultThresholds returns the shipped scoring constants.
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		EngineWeights: EngineWeights{AI: 0.25, Research: 0.35, Esoteric: 0.20, Jarvis: 0.20},
		TotalBoostCap: 1.5,
		TierThresholds: TierThresholds{
			TitaniumSmash: 8.0,
			GoldStar:      7.5,
			EdgeLean:      6.5,
			Monitor:       5.5,
		},
		OutputMinimums: OutputMinimums{Games: 7.0, PlayerProps: 6.5},
		GoldStarGates: GoldStarGates{
			AIMin:       6.8,
			ResearchMin: 6.5,
			JarvisMin:   6.5,
			EsotericMin: 5.5,
		},
	}
}

// LoadThresholdsConfig loads an override file, falling back to
// DefaultThresholds when path is empty (the common case).
func LoadThresholdsConfig(path string) (ThresholdsConfig, error) {
	cfg := DefaultThresholds()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read thresholds config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse thresholds config: %w", err)
	}
	return cfg, nil
}
