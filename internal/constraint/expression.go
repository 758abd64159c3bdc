// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
)

// ExpressionConstraint evaluates a boolean CEL expression over
// input.<name> (the constraint's own declared Property inputs) and
// subject.<attr> (the requesting subject's attributes). The
// expression is compiled once, on first use, and cached; an
// expression that throws at evaluation time fails with
// jiterrors.ErrConstraintFailed rather than being treated as merely
// unsatisfied (spec §4.2).
type ExpressionConstraint struct {
	name       string
	class      Class
	expression string
	properties []Property

	once    sync.Once
	program cel.Program
	compErr error
}

// NewExpressionConstraint builds an expression constraint named name,
// belonging to class, evaluating expr, with the given declared
// Property inputs.
func NewExpressionConstraint(name string, class Class, expr string, properties []Property) *ExpressionConstraint {
	return &ExpressionConstraint{
		name:       name,
		class:      class,
		expression: expr,
		properties: properties,
	}
}

func (e *ExpressionConstraint) Name() string          { return e.name }
func (e *ExpressionConstraint) Class() Class           { return e.class }
func (e *ExpressionConstraint) Properties() []Property { return e.properties }

func (e *ExpressionConstraint) NewCheck(subject SubjectAttrs) *Check {
	return newCheck(e, subject, e.execute)
}

func (e *ExpressionConstraint) compile() (cel.Program, error) {
	e.once.Do(func() {
		env, err := cel.NewEnv(
			cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("subject", cel.MapType(cel.StringType, cel.DynType)),
		)
		if err != nil {
			e.compErr = fmt.Errorf("building CEL environment: %w", err)
			return
		}
		ast, issues := env.Compile(e.expression)
		if issues != nil && issues.Err() != nil {
			e.compErr = fmt.Errorf("compiling expression %q: %w", e.expression, issues.Err())
			return
		}
		prg, err := env.Program(ast)
		if err != nil {
			e.compErr = fmt.Errorf("building CEL program for %q: %w", e.expression, err)
			return
		}
		e.program = prg
	})
	return e.program, e.compErr
}

func (e *ExpressionConstraint) execute(check *Check) (bool, error) {
	prg, err := e.compile()
	if err != nil {
		return false, fmt.Errorf("%w: %w", jiterrors.ErrConstraintFailed, err)
	}

	input := make(map[string]any, len(check.inputs))
	for _, p := range check.inputs {
		input[p.Name] = p.Value()
	}

	out, _, err := prg.Eval(map[string]any{
		"input":   input,
		"subject": map[string]any(check.subject),
	})
	if err != nil {
		return false, fmt.Errorf("%w: evaluating %q: %w", jiterrors.ErrConstraintFailed, e.expression, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression %q did not evaluate to a boolean", jiterrors.ErrConstraintFailed, e.expression)
	}
	return result, nil
}
