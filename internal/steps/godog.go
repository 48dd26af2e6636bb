package steps

import (
	"context"
	"reflect"
	"regexp"

	"github.com/cucumber/godog"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	stringType  = reflect.TypeOf("")
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// GodogRegistry adapts a godog scenario context to Registry.
type GodogRegistry struct {
	sc *godog.ScenarioContext
}

// NewGodogRegistry returns a Registry that defines steps on sc.
func NewGodogRegistry(sc *godog.ScenarioContext) *GodogRegistry {
	return &GodogRegistry{sc: sc}
}

// Step registers h on the scenario context. godog matches step functions by
// arity, so h is wrapped in a function taking one string per capture group.
func (g *GodogRegistry) Step(pattern string, h Handler) {
	re := regexp.MustCompile(pattern)
	in := []reflect.Type{contextType}
	for i := 0; i < re.NumSubexp(); i++ {
		in = append(in, stringType)
	}
	fnType := reflect.FuncOf(in, []reflect.Type{errorType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		ctx, _ := args[0].Interface().(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		strs := make([]string, len(args)-1)
		for i, a := range args[1:] {
			strs[i] = a.String()
		}
		out := reflect.New(errorType).Elem()
		if err := h(ctx, strs...); err != nil {
			out.Set(reflect.ValueOf(err))
		}
		return []reflect.Value{out}
	})
	g.sc.Step(re, fn.Interface())
}

// BindGodog wires s into a godog scenario: the harness phrases are
// registered and s is reset before each scenario.
func BindGodog(sc *godog.ScenarioContext, s *Scenario) *GodogRegistry {
	reg := NewGodogRegistry(sc)
	Bind(reg, s)
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.Before()
	})
	return reg
}
