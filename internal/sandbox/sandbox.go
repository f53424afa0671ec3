// Package sandbox implements the Sandboxed Execution Layer (spec §4.B):
// loading agent-provided Go source, enforcing an import allow-list via
// static analysis, and executing the candidate entry function under a
// wall-clock deadline with a restricted symbol environment.
//
// Go's own import system does most of the sandboxing work for us: unlike
// a dynamically-typed scripting language, a Go program cannot reach the
// filesystem, network, or process table without importing a package that
// exposes that capability. So the allow-list check at Prepare time is not
// a best-effort heuristic layered on top of a separately-restricted
// builtin namespace (as it would be for Python); it IS the restriction.
// stdlib.Symbols is filtered down to exactly the allowed import paths
// before being loaded into the interpreter, so an import that passes the
// static check cannot still smuggle in extra capability through some
// always-present builtin.
package sandbox

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"phasebench/internal/logging"
	"phasebench/internal/model"
)

// Callable wraps a resolved, not-yet-invoked candidate entry function.
type Callable struct {
	value reflect.Value
}

// Type returns the candidate entry function's reflected signature, so
// callers can build a same-shaped wrapper (e.g. via reflect.MakeFunc)
// around Invoke without needing to know the task's concrete types.
func (c *Callable) Type() reflect.Type {
	return c.value.Type()
}

// InvokeFailure distinguishes a candidate-level failure (panic or
// timeout) from an ordinary evaluator error. Rule checks that call the
// candidate through a wrapper built over Invoke should let a recovered
// InvokeFailure propagate rather than degrading it to a rule violation:
// per spec §7, invoke-time failures abort the whole attempt as a
// Feedback-level error, not a single rule's scope="error" violation.
type InvokeFailure struct {
	Info *model.ErrorInfo
}

func (e *InvokeFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Info.Type, e.Info.Message)
}

// Sandbox prepares and invokes candidate source under an import allow-list.
type Sandbox struct{}

// New returns a Sandbox.
func New() *Sandbox {
	return &Sandbox{}
}

// Prepare parses source, statically checks its imports against
// allowedImports, builds a restricted interpreter exposing only those
// imports, evaluates the source, and resolves entryName to a callable
// value. It never returns both a Callable and an error.
func (s *Sandbox) Prepare(source, entryName string, allowedImports []string) (*Callable, *model.ErrorInfo) {
	log := logging.Get(logging.CategorySandbox)

	wrapped := wrapAsMain(source)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "solution.go", wrapped, 0)
	if err != nil {
		log.Warn("parse failure: %v", err)
		return nil, &model.ErrorInfo{Type: "SyntaxError", Message: err.Error(), Phase: model.ErrorPhaseExecution}
	}

	if violation := checkImports(file, allowedImports); violation != "" {
		log.Warn("import violation: %s", violation)
		return nil, &model.ErrorInfo{
			Type:    "ImportViolation",
			Message: violation,
			Phase:   model.ErrorPhaseExecution,
		}
	}

	i := interp.New(interp.Options{})
	if err := i.Use(allowedSymbols(allowedImports)); err != nil {
		return nil, &model.ErrorInfo{Type: "SandboxSetupError", Message: err.Error(), Phase: model.ErrorPhaseExecution}
	}

	if _, err := i.Eval(wrapped); err != nil {
		return nil, &model.ErrorInfo{Type: classifyEvalError(err), Message: err.Error(), Phase: model.ErrorPhaseExecution}
	}

	entry, err := i.Eval("main." + entryName)
	if err != nil {
		return nil, &model.ErrorInfo{Type: "EntryMissing", Message: err.Error(), Phase: model.ErrorPhaseExecution}
	}
	if entry.Kind() != reflect.Func {
		return nil, &model.ErrorInfo{
			Type:    "NotCallable",
			Message: fmt.Sprintf("%q is not callable", entryName),
			Phase:   model.ErrorPhaseExecution,
		}
	}

	return &Callable{value: entry}, nil
}

// Invoke calls the prepared entry function with args under timeout.
// The candidate's return values, including any error value it returns,
// come back unchanged as the first result for the caller (a rule check)
// to judge. A panic in the candidate comes back as a "PanicError"
// ErrorInfo and an expired deadline as a "Timeout" ErrorInfo.
func (s *Sandbox) Invoke(ctx context.Context, c *Callable, args []reflect.Value, timeout time.Duration) ([]reflect.Value, *model.ErrorInfo) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		results []reflect.Value
		panicV  any
	}
	resultCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{panicV: r}
			}
		}()
		resultCh <- outcome{results: c.value.Call(args)}
	}()

	select {
	case out := <-resultCh:
		if out.panicV != nil {
			return nil, &model.ErrorInfo{
				Type:    "PanicError",
				Message: fmt.Sprintf("%v", out.panicV),
				Phase:   model.ErrorPhaseExecution,
			}
		}
		return out.results, nil
	case <-ctx.Done():
		return nil, &model.ErrorInfo{Type: "Timeout", Message: "execution timed out", Phase: model.ErrorPhaseExecution}
	}
}

// checkImports walks the parsed import declarations and returns a
// non-empty message naming the first disallowed module, or "" if clean.
func checkImports(file *ast.File, allowedImports []string) string {
	allowed := make(map[string]bool, len(allowedImports))
	for _, a := range allowedImports {
		allowed[a] = true
	}

	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		top := strings.SplitN(path, "/", 2)[0]
		if !allowed[top] && !allowed[path] {
			return fmt.Sprintf("import %q is not allowed (allowed imports: %v)", path, allowedImports)
		}
	}
	return ""
}

// allowedSymbols filters the full yaegi stdlib symbol table down to the
// import paths a task declares allowed, so the interpreter cannot
// resolve a package it wasn't statically permitted to import.
func allowedSymbols(allowedImports []string) interp.Exports {
	filtered := make(interp.Exports, len(allowedImports))
	for _, path := range allowedImports {
		// stdlib.Symbols is keyed by "<import path>/<package name>".
		key := path + "/" + path[strings.LastIndex(path, "/")+1:]
		if syms, ok := stdlib.Symbols[key]; ok {
			filtered[key] = syms
		}
	}
	return filtered
}

func wrapAsMain(source string) string {
	if strings.Contains(source, "package main") {
		return source
	}
	return "package main\n\n" + source
}

func classifyEvalError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "undefined"):
		return "NameError"
	case strings.Contains(msg, "cannot use"), strings.Contains(msg, "mismatched types"):
		return "TypeError"
	default:
		return "CompileError"
	}
}
