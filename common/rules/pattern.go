// Package rules matches build version strings against approver-group
// patterns. Patterns are CEL expressions over a `version` variable
// (e.g. `version.startsWith("5.3.3")`); plain strings fall back to a
// prefix match so legacy rows keep working.
package rules

import (
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Matcher compiles and caches build-version patterns
type Matcher struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewMatcher creates a pattern matcher
func NewMatcher() (*Matcher, error) {
	env, err := cel.NewEnv(
		cel.Variable("version", cel.StringType),
	)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Matches reports whether a build version satisfies the pattern.
// An empty pattern matches everything. Patterns that do not compile to
// a boolean CEL expression are treated as version prefixes.
func (m *Matcher) Matches(pattern, version string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return true
	}

	prg, ok := m.program(pattern)
	if !ok {
		return strings.HasPrefix(version, pattern)
	}

	out, _, err := prg.Eval(map[string]interface{}{"version": version})
	if err != nil {
		return false
	}

	result, ok := out.Value().(bool)
	return ok && result
}

func (m *Matcher) program(pattern string) (cel.Program, bool) {
	m.mu.RLock()
	prg, cached := m.programs[pattern]
	m.mu.RUnlock()
	if cached {
		return prg, prg != nil
	}

	prg = m.compile(pattern)

	m.mu.Lock()
	m.programs[pattern] = prg
	m.mu.Unlock()

	return prg, prg != nil
}

// compile returns nil when the pattern is not a boolean CEL expression.
func (m *Matcher) compile(pattern string) cel.Program {
	ast, iss := m.env.Compile(pattern)
	if iss != nil && iss.Err() != nil {
		return nil
	}
	if ast.OutputType() != cel.BoolType {
		return nil
	}
	prg, err := m.env.Program(ast)
	if err != nil {
		return nil
	}
	return prg
}
