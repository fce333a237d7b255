package catalog

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
)

// ClueRuleEnv is what a clue rule condition can see.
type ClueRuleEnv struct {
	Sin       float64 `expr:"sin"`
	Grace     float64 `expr:"grace"`
	Trust     float64 `expr:"trust"`
	Suspicion float64 `expr:"suspicion"`
	Chaos     float64 `expr:"chaos"`
	Suspected bool    `expr:"suspected"`
	Day       int     `expr:"day"`
}

// ClueRule generates a clue of Category with probability Chance whenever When holds.
type ClueRule struct {
	Category participant.ClueCategory `yaml:"category" json:"category"`
	When     string                   `yaml:"when" json:"when"`
	Chance   float64                  `yaml:"chance" json:"chance"`

	program *vm.Program
}

// Compile pre-compiles the condition so per-tick evaluation stays cheap.
func (r *ClueRule) Compile() error {
	program, err := expr.Compile(r.When, expr.Env(ClueRuleEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid clue rule %q: %w", r.When, err)
	}
	r.program = program
	return nil
}

// Matches evaluates the condition against env.
func (r *ClueRule) Matches(env ClueRuleEnv) (bool, error) {
	if r.program == nil {
		if err := r.Compile(); err != nil {
			return false, err
		}
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("clue rule %q: %w", r.When, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}
