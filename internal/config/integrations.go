// Package config implements the startup-validated, environment-variable-
// driven configuration: the storage volume, the scoring thresholds file,
// and an upstream-integration registry keyed by criticality tier.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Criticality ranks how much an integration's absence hurts.
type Criticality string

const (
	Critical       Criticality = "CRITICAL"
	DegradedOK     Criticality = "DEGRADED_OK"
	Optional       Criticality = "OPTIONAL"
	RelevanceGated Criticality = "RELEVANCE_GATED"
)

// Integration describes one upstream collaborator (market data, results,
// splits, SERP-style intelligence) and the secrets that configure it.
type Integration struct {
	Name        string
	Criticality Criticality
	// SecretEnvVars lists alternative env vars; presence of ANY one means
	// CONFIGURED.
	SecretEnvVars []string
	// RelevantSports restricts a RELEVANCE_GATED integration to the sports
	// it actually applies to (e.g. weather for outdoor-stadium sports).
	// Empty means relevant to all sports.
	RelevantSports []string
}

// Configured reports whether any of the integration's secret env vars is set.
func (i Integration) Configured() bool {
	for _, name := range i.SecretEnvVars {
		if v := os.Getenv(name); v != "" {
			return true
		}
	}
	return false
}

// Registry is the set of upstream integrations this process depends on.
type Registry struct {
	integrations []Integration
}

// NewRegistry builds the registry with this module's fixed integration
// list. The set of upstream collaborators is fixed; only which secrets back
// them varies, resolved from the environment at construction time.
func NewRegistry() *Registry {
	return &Registry{integrations: []Integration{
		{
			Name:          "market_data",
			Criticality:   Critical,
			SecretEnvVars: []string{"PICKENGINE_MARKET_DATA_API_KEY", "PICKENGINE_MARKET_DATA_API_KEY_BACKUP"},
		},
		{
			Name:          "results",
			Criticality:   Critical,
			SecretEnvVars: []string{"PICKENGINE_RESULTS_API_KEY"},
		},
		{
			Name:          "splits",
			Criticality:   DegradedOK,
			SecretEnvVars: []string{"PICKENGINE_SPLITS_API_KEY"},
		},
		{
			Name:          "serp_intelligence",
			Criticality:   Optional,
			SecretEnvVars: []string{"PICKENGINE_SERP_API_KEY"},
		},
		{
			Name:           "weather",
			Criticality:    RelevanceGated,
			SecretEnvVars:  []string{"PICKENGINE_WEATHER_API_KEY"},
			RelevantSports: []string{"NFL", "MLB"},
		},
	}}
}

// Integrations returns all registered integrations.
func (r *Registry) Integrations() []Integration { return r.integrations }

// Degraded reports whether the process should report degraded health: any
// CRITICAL integration unconfigured, or any DEGRADED_OK integration
// unconfigured.
func (r *Registry) Degraded() (bool, []string) {
	var reasons []string
	for _, i := range r.integrations {
		if i.Criticality == RelevanceGated {
			continue // relevance-gated absence never counts against health
		}
		if (i.Criticality == Critical || i.Criticality == DegradedOK) && !i.Configured() {
			reasons = append(reasons, fmt.Sprintf("%s (%s) not configured", i.Name, i.Criticality))
		}
	}
	return len(reasons) > 0, reasons
}

// RelevantFor reports whether a RELEVANCE_GATED integration applies to sport.
func (i Integration) RelevantFor(sport string) bool {
	if len(i.RelevantSports) == 0 {
		return true
	}
	for _, s := range i.RelevantSports {
		if strings.EqualFold(s, sport) {
			return true
		}
	}
	return false
}
