package builtin

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"persona/internal/capability"
)

// CalculateMath evaluates arithmetic expressions. The expression is
// parsed into an AST and walked directly, so operator precedence holds
// ("2+2*3" is 8) and nothing outside of arithmetic can run.
type CalculateMath struct {
	capability.Base
}

func NewCalculateMath() *CalculateMath {
	return &CalculateMath{
		Base: capability.NewBase(
			"calculate_math",
			"Evaluates an arithmetic expression. Args: expression (string), e.g. '2+2*3' or '(10-4)/2'.",
		),
	}
}

func (c *CalculateMath) Execute(args map[string]any) capability.Result {
	if errRes := capability.RequireArgs(args, "expression"); errRes != nil {
		return errRes
	}
	expr, ok := args["expression"].(string)
	if !ok {
		return capability.Errorf("argument 'expression' must be a string")
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return capability.Errorf("argument 'expression' must not be empty")
	}

	value, err := evalArithmetic(expr)
	if err != nil {
		return capability.Errorf("cannot evaluate '%s': %v", expr, err)
	}

	return capability.Result{
		"expression": expr,
		"result":     normalizeNumber(value),
		"status":     "success",
	}
}

// normalizeNumber reports whole results as integers so "2+2*3" comes
// back as 8 rather than 8.0 in the formatted answer.
func normalizeNumber(v float64) any {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return int64(v)
	}
	return v
}

func evalArithmetic(expr string) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid expression")
	}
	return evalNode(node)
}

func evalNode(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT:
			return strconv.ParseFloat(n.Value, 64)
		default:
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
	case *ast.ParenExpr:
		return evalNode(n.X)
	case *ast.UnaryExpr:
		v, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %s", n.Op)
		}
	case *ast.BinaryExpr:
		left, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		case token.REM:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return math.Mod(left, right), nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported syntax")
	}
}
