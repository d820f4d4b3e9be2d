package hue

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

const (
	DefaultToLevel = "round(x * 100 / 254)"
	DefaultToHue   = "round(x * 254 / 100)"
)

var functions = map[string]govaluate.ExpressionFunction{
	"round": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("round takes one argument")
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("round: not a number")
		}
		return math.Round(v), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		return fold(args, math.Min)
	},
	"max": func(args ...interface{}) (interface{}, error) {
		return fold(args, math.Max)
	},
}

func fold(args []interface{}, f func(a, b float64) float64) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no arguments")
	}
	acc, ok := args[0].(float64)
	if !ok {
		return nil, fmt.Errorf("not a number")
	}
	for _, a := range args[1:] {
		v, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("not a number")
		}
		acc = f(acc, v)
	}
	return acc, nil
}

// Formula converts between Hue brightness and dim level. The input is bound to x.
type Formula struct {
	src  string
	expr *govaluate.EvaluableExpression
}

func Compile(src string) (*Formula, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions)
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", src, err)
	}
	return &Formula{src: src, expr: expr}, nil
}

func (f *Formula) Eval(x float64) (float64, error) {
	out, err := f.expr.Evaluate(map[string]interface{}{"x": x})
	if err != nil {
		return 0, fmt.Errorf("formula %q: %w", f.src, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("formula %q: result %v is not a number", f.src, out)
	}
	return v, nil
}

func compileOr(src, fallback string) (*Formula, error) {
	if src == "" {
		src = fallback
	}
	return Compile(src)
}
