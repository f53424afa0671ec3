package sandbox

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const addSource = `
func Add(a int, b int) int {
	return a + b
}
`

func TestPrepareAndInvoke(t *testing.T) {
	sb := New()
	callable, errInfo := sb.Prepare(addSource, "Add", nil)
	require.Nil(t, errInfo)
	require.NotNil(t, callable)

	results, errInfo := sb.Invoke(context.Background(), callable,
		[]reflect.Value{reflect.ValueOf(2), reflect.ValueOf(3)}, time.Second)
	require.Nil(t, errInfo)
	require.Len(t, results, 1)
	assert.Equal(t, 5, int(results[0].Int()))
}

func TestPrepareRejectsDisallowedImport(t *testing.T) {
	source := `
import "os"

func Add(a int, b int) int {
	os.Exit(1)
	return a + b
}
`
	sb := New()
	callable, errInfo := sb.Prepare(source, "Add", []string{"fmt"})
	require.Nil(t, callable)
	require.NotNil(t, errInfo)
	assert.Equal(t, "ImportViolation", errInfo.Type)
}

func TestPrepareAllowsDeclaredImport(t *testing.T) {
	source := `
import "strings"

func Shout(s string) string {
	return strings.ToUpper(s)
}
`
	sb := New()
	callable, errInfo := sb.Prepare(source, "Shout", []string{"strings"})
	require.Nil(t, errInfo)
	require.NotNil(t, callable)
}

func TestPrepareRejectsSyntaxError(t *testing.T) {
	sb := New()
	callable, errInfo := sb.Prepare("func Add(a, ", "Add", nil)
	require.Nil(t, callable)
	require.NotNil(t, errInfo)
	assert.Equal(t, "SyntaxError", errInfo.Type)
}

func TestPrepareRejectsMissingEntry(t *testing.T) {
	sb := New()
	callable, errInfo := sb.Prepare(addSource, "Multiply", nil)
	require.Nil(t, callable)
	require.NotNil(t, errInfo)
	assert.Equal(t, "EntryMissing", errInfo.Type)
}

func TestInvokePanicIsClassified(t *testing.T) {
	source := `
func Boom(n int) int {
	panic("kaboom")
}
`
	sb := New()
	callable, errInfo := sb.Prepare(source, "Boom", nil)
	require.Nil(t, errInfo)

	_, errInfo = sb.Invoke(context.Background(), callable, []reflect.Value{reflect.ValueOf(1)}, time.Second)
	require.NotNil(t, errInfo)
	assert.Equal(t, "PanicError", errInfo.Type)
}

func TestInvokeTimeoutDoesNotLeakTheWorkerGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := `
import "time"

func Slow(n int) int {
	time.Sleep(80 * time.Millisecond)
	return n
}
`
	sb := New()
	callable, errInfo := sb.Prepare(source, "Slow", []string{"time"})
	require.Nil(t, errInfo)

	_, errInfo = sb.Invoke(context.Background(), callable, []reflect.Value{reflect.ValueOf(1)}, 10*time.Millisecond)
	require.NotNil(t, errInfo)
	assert.Equal(t, "Timeout", errInfo.Type)

	// give the abandoned worker goroutine time to finish and exit before
	// goleak checks: the buffered result channel lets it complete without
	// blocking, it just arrives too late for this call to observe.
	time.Sleep(150 * time.Millisecond)
}

func TestCallableType(t *testing.T) {
	sb := New()
	callable, errInfo := sb.Prepare(addSource, "Add", nil)
	require.Nil(t, errInfo)

	typ := callable.Type()
	assert.Equal(t, reflect.Func, typ.Kind())
	assert.Equal(t, 2, typ.NumIn())
}
