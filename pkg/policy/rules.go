package policy

import (
	"fmt"
	"os"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
	"gopkg.in/yaml.v3"
)

// Rule is one named CEL expression from the rule file. Expressions see
// the evaluation dimensions plus severity and task_type, and must
// produce a bool.
type Rule struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

type rulesFile struct {
	Version  string `yaml:"version"`
	Veto     []Rule `yaml:"veto"`
	Escalate []Rule `yaml:"escalate"`
}

type compiledRule struct {
	name string
	prg  cel.Program
}

// RuleSet holds compiled demotion rules. Veto and escalate rules have
// the same mechanical effect (AUTO_EXECUTE becomes REQUIRE_HITL); the
// two lists exist so rule files can separate safety vetoes from
// cost-or-ownership escalations.
type RuleSet struct {
	veto     []compiledRule
	escalate []compiledRule
}

// LoadRules reads and compiles a YAML rule file.
func LoadRules(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules compiles rule expressions. Compilation is strict: a rule
// that fails the determinism lint, fails type-checking, or does not
// produce a bool rejects the whole file, so a broken rule can never be
// silently skipped at decision time.
func ParseRules(raw []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	env, err := newRuleEnv()
	if err != nil {
		return nil, err
	}

	rs := &RuleSet{}
	for _, r := range file.Veto {
		c, err := compileRule(env, r)
		if err != nil {
			return nil, err
		}
		rs.veto = append(rs.veto, c)
	}
	for _, r := range file.Escalate {
		c, err := compileRule(env, r)
		if err != nil {
			return nil, err
		}
		rs.escalate = append(rs.escalate, c)
	}
	return rs, nil
}

func newRuleEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("confidence", types.DoubleType),
			decls.NewVariable("complexity_risk", types.DoubleType),
			decls.NewVariable("resource_cost", types.DoubleType),
			decls.NewVariable("feasibility", types.DoubleType),
			decls.NewVariable("alignment", types.DoubleType),
			decls.NewVariable("severity", types.StringType),
			decls.NewVariable("task_type", types.StringType),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return env, nil
}

func compileRule(env *cel.Env, r Rule) (compiledRule, error) {
	if r.Name == "" {
		return compiledRule{}, fmt.Errorf("rule with expression %q has no name", r.Expr)
	}
	if err := lintDeterminism(env, r.Expr); err != nil {
		return compiledRule{}, fmt.Errorf("rule %s: %w", r.Name, err)
	}

	ast, issues := env.Compile(r.Expr)
	if issues != nil && issues.Err() != nil {
		return compiledRule{}, fmt.Errorf("rule %s: compilation failed: %w", r.Name, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return compiledRule{}, fmt.Errorf("rule %s: expression must produce bool, got %s", r.Name, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return compiledRule{}, fmt.Errorf("rule %s: program construction failed: %w", r.Name, err)
	}
	return compiledRule{name: r.Name, prg: prg}, nil
}

// Demotions evaluates every rule against the decision variables and
// returns one reasoning line per matching rule. A rule that errors at
// evaluation counts as matched: the rule file may only make the system
// more conservative, so uncertainty demotes.
func (rs *RuleSet) Demotions(vars map[string]any) []string {
	var hits []string
	for _, r := range rs.veto {
		if matched, errLine := evalRule(r, vars); matched {
			if errLine != "" {
				hits = append(hits, errLine)
			} else {
				hits = append(hits, fmt.Sprintf("Rule %s vetoed auto execution.", r.name))
			}
		}
	}
	for _, r := range rs.escalate {
		if matched, errLine := evalRule(r, vars); matched {
			if errLine != "" {
				hits = append(hits, errLine)
			} else {
				hits = append(hits, fmt.Sprintf("Rule %s escalated to human review.", r.name))
			}
		}
	}
	return hits
}

func evalRule(r compiledRule, vars map[string]any) (bool, string) {
	out, _, err := r.prg.Eval(vars)
	if err != nil {
		return true, fmt.Sprintf("Rule %s failed to evaluate; treating as matched.", r.name)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return true, fmt.Sprintf("Rule %s produced a non-bool result; treating as matched.", r.name)
	}
	return matched, ""
}
