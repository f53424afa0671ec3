package task

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"phasebench/internal/model"
)

// trustedInterp builds a yaegi interpreter for task-author code
// (evaluator.go, tests.go). Unlike the candidate sandbox in
// internal/sandbox, this side is unrestricted: the full standard
// library is loaded and internal/model's value types are exported so
// task authors can construct RuleResult/TestCase values directly. Task
// directories are provided by whoever assembles the benchmark corpus,
// not by the agent under test, so they sit outside the sandbox's trust
// boundary by design (spec §1).
func trustedInterp() *interp.Interpreter {
	i := interp.New(interp.Options{})
	_ = i.Use(stdlib.Symbols)
	_ = i.Use(modelSymbols())
	return i
}

func wrapMain(source string) string {
	if strings.Contains(source, "package main") {
		return source
	}
	return "package main\n\n" + source
}

// loadEvaluator interprets evaluator.go and returns a reflect.Value of
// the zero-value Evaluator it declares.
func loadEvaluator(source string) (reflect.Value, error) {
	i := trustedInterp()
	if _, err := i.Eval(wrapMain(source)); err != nil {
		return reflect.Value{}, fmt.Errorf("evaluator.go: %w", err)
	}
	v, err := i.Eval("main.Evaluator{}")
	if err != nil {
		return reflect.Value{}, fmt.Errorf("evaluator.go: type Evaluator not found: %w", err)
	}
	return v, nil
}

// loadTestCases interprets tests.go and returns main.TestCases.
func loadTestCases(source string) ([]model.TestCase, error) {
	i := trustedInterp()
	if _, err := i.Eval(wrapMain(source)); err != nil {
		return nil, fmt.Errorf("tests.go: %w", err)
	}
	v, err := i.Eval("main.TestCases")
	if err != nil {
		return nil, fmt.Errorf("tests.go: var TestCases not found: %w", err)
	}

	cases, ok := v.Interface().([]model.TestCase)
	if !ok {
		return nil, fmt.Errorf("tests.go: TestCases must be []model.TestCase, got %T", v.Interface())
	}
	return cases, nil
}
