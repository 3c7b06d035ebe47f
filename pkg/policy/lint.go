package policy

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Policy decisions must be repeatable from their inputs, so rule
// expressions may not reach for time or iterate maps in unspecified
// order. The lint walks the parsed AST before compilation and rejects
// the constructs that would smuggle nondeterminism into a decision.
func lintDeterminism(env *cel.Env, source string) error {
	parsed, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("parse failed: %w", issues.Err())
	}

	var problems []string
	expr := parsed.Expr() //nolint:staticcheck // AST traversal still requires the proto form
	walkExpr(expr, &problems)

	if len(problems) > 0 {
		return fmt.Errorf("nondeterministic expression: %s", strings.Join(problems, "; "))
	}
	return nil
}

func walkExpr(e *exprpb.Expr, problems *[]string) {
	if e == nil {
		return
	}

	switch k := e.ExprKind.(type) {
	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		switch call.Function {
		case "now", "timestamp_now":
			*problems = append(*problems, "now() is forbidden")
		case "keys", "values":
			*problems = append(*problems, "map iteration (keys/values) is forbidden")
		}
		if call.Target != nil {
			walkExpr(call.Target, problems)
		}
		for _, arg := range call.Args {
			walkExpr(arg, problems)
		}

	case *exprpb.Expr_SelectExpr:
		walkExpr(k.SelectExpr.Operand, problems)

	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.Elements {
			walkExpr(el, problems)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.Entries {
			if entry.GetMapKey() != nil {
				walkExpr(entry.GetMapKey(), problems)
			}
			walkExpr(entry.Value, problems)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := k.ComprehensionExpr
		walkExpr(comp.IterRange, problems)
		walkExpr(comp.AccuInit, problems)
		walkExpr(comp.LoopCondition, problems)
		walkExpr(comp.LoopStep, problems)
		walkExpr(comp.Result, problems)
	}
}
