// Package prompts holds the default system prompts for each client role.
package prompts

import (
	_ "embed"
	"strings"

	"github.com/physbench/physbench/internal/models"
)

var (
	//go:embed data/solver.md
	solver string

	//go:embed data/theorist.md
	theorist string

	//go:embed data/evaluator.md
	evaluator string

	//go:embed data/ranker.md
	ranker string
)

// Role identifies the system prompt a client is configured with.
type Role string

const (
	RoleSolver    Role = "solver"
	RoleTheorist  Role = "theorist"
	RoleEvaluator Role = "evaluator"
	RoleRanker    Role = "ranker"
)

// Default returns the embedded prompt for role, or "" for an unknown role.
func Default(role Role) string {
	switch role {
	case RoleSolver:
		return strings.TrimSpace(solver)
	case RoleTheorist:
		return strings.TrimSpace(theorist)
	case RoleEvaluator:
		return strings.TrimSpace(evaluator)
	case RoleRanker:
		return strings.TrimSpace(ranker)
	default:
		return ""
	}
}

// Resolve returns the override for role from p when set, otherwise the
// embedded default.
func Resolve(p models.Prompts, role Role) string {
	var override string
	switch role {
	case RoleSolver:
		override = p.Solver
	case RoleTheorist:
		override = p.Theorist
	case RoleEvaluator:
		override = p.Evaluator
	case RoleRanker:
		override = p.Ranker
	}
	if strings.TrimSpace(override) != "" {
		return override
	}
	return Default(role)
}
