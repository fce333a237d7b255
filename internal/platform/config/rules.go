package config

import (
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

// RulesPrefix namespaces engine rule overrides, e.g. RULES_MAX_DAYS=5.
const RulesPrefix = "RULES_"

// LoadRules starts from engine.DefaultRules and applies RULES_* overrides.
func LoadRules() (engine.Rules, error) {
	r := engine.DefaultRules()
	if err := ParseEnvPrefixed(&r, RulesPrefix); err != nil {
		return engine.Rules{}, err
	}
	if err := r.Validate(); err != nil {
		return engine.Rules{}, err
	}
	return r, nil
}
