// Package rules evaluates tenant-configurable business rules written
// as CEL expressions, currently used for expense spending alerts.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"whiskeyballet/internal/core/apperror"
)

// DefaultSpendingRule flags any expense above the tenant's configured
// limit or any expense that pushes the month over five times that
// limit.
const DefaultSpendingRule = `amount > limit || monthTotal + amount > limit * 5.0`

// SpendingInput is the variable set a spending rule can reference.
type SpendingInput struct {
	Amount     float64
	Category   string
	MonthTotal float64
	Limit      float64
}

// SpendingRule is a compiled expense rule. Compile once, evaluate per
// expense.
type SpendingRule struct {
	program cel.Program
	source  string
}

// CompileSpendingRule parses and type-checks a rule expression. The
// expression must evaluate to a boolean.
func CompileSpendingRule(expr string) (*SpendingRule, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("category", cel.StringType),
		cel.Variable("monthTotal", cel.DoubleType),
		cel.Variable("limit", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, apperror.NewValidation("spending rule does not compile").
			WithDetail("expression", expr).
			WithCause(issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, apperror.NewValidation("spending rule must evaluate to a boolean").
			WithDetail("expression", expr)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build rule program: %w", err)
	}
	return &SpendingRule{program: program, source: expr}, nil
}

// Source returns the original expression.
func (r *SpendingRule) Source() string { return r.source }

// Exceeded reports whether the rule fires for the given input.
func (r *SpendingRule) Exceeded(in SpendingInput) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"amount":     in.Amount,
		"category":   in.Category,
		"monthTotal": in.MonthTotal,
		"limit":      in.Limit,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate spending rule: %w", err)
	}
	fired, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("spending rule returned %T, want bool", out.Value())
	}
	return fired, nil
}
