package translator

import (
	"github.com/Knetic/govaluate"
)

// Formula converts a brightness level, e.g. "x / 2.55" to turn 0-255 into a
// percentage. An empty or broken formula leaves the value unchanged.
type Formula struct {
	source     string
	expression *govaluate.EvaluableExpression
}

func NewFormula(source string) *Formula {
	f := &Formula{source: source}
	if source == "" {
		return f
	}
	expression, err := govaluate.NewEvaluableExpression(source)
	if err != nil {
		return f
	}
	f.expression = expression
	return f
}

func (f *Formula) String() string { return f.source }

// Valid reports whether the formula parsed. An empty formula is valid.
func (f *Formula) Valid() bool {
	return f.source == "" || f.expression != nil
}

func (f *Formula) Evaluate(x float64) float64 {
	if f == nil || f.expression == nil {
		return x
	}
	parameters := make(map[string]interface{}, 1)
	parameters["x"] = x

	result, err := f.expression.Evaluate(parameters)
	if err != nil {
		return x
	}

	if val, ok := result.(float64); ok {
		return val
	}
	return x
}
