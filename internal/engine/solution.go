package engine

import (
	"context"
	"reflect"
	"time"

	"phasebench/internal/sandbox"
)

// invokeTimeout returns the per-call wall-clock budget declared by the
// task definition.
func (s *Session) invokeTimeout() time.Duration {
	return time.Duration(s.task.Execution.TimeoutSeconds) * time.Second
}

// wrapCallable adapts a sandbox.Callable into a plain Go function value
// of the candidate's own signature, so task-author rule helpers (which
// call `solution` through reflection, exactly as if it were a normal Go
// func) transparently get per-call timeout and panic containment via
// sandbox.Invoke. A failed invocation panics with *sandbox.InvokeFailure
// rather than returning zero values, so it cannot be silently mistaken
// for a legitimate return value by a rule's comparison logic.
func wrapCallable(sb *sandbox.Sandbox, callable *sandbox.Callable, timeout time.Duration) any {
	wrapped := reflect.MakeFunc(callable.Type(), func(args []reflect.Value) []reflect.Value {
		results, errInfo := sb.Invoke(context.Background(), callable, args, timeout)
		if errInfo != nil {
			panic(&sandbox.InvokeFailure{Info: errInfo})
		}
		return results
	})
	return wrapped.Interface()
}
