package workspace

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestCheckChangedOnMissingFile(t *testing.T) {
	mb := New(t.TempDir(), "go")
	w := NewWatcher(mb, 20*time.Millisecond)

	_, changed, err := w.checkChanged()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("expected no change when the solution file does not exist yet")
	}
}

func TestCheckChangedDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	mb := New(dir, "go")
	w := NewWatcher(mb, 20*time.Millisecond)
	w.Seed()

	if err := os.WriteFile(mb.SolutionPath(), []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}

	content, changed, err := w.checkChanged()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a change after writing the solution file")
	}
	if content != "package main" {
		t.Fatalf("content = %q", content)
	}

	// a second check without a further write reports no new change.
	_, changedAgain, err := w.checkChanged()
	if err != nil {
		t.Fatal(err)
	}
	if changedAgain {
		t.Fatal("expected no change on a repeated check with no intervening write")
	}
}

func TestWaitForChangeReturnsOnWrite(t *testing.T) {
	dir := t.TempDir()
	mb := New(dir, "go")
	w := NewWatcher(mb, 20*time.Millisecond)
	w.Seed()

	want := "package main\n\nfunc Add(a, b int) int { return a + b }\n"
	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = os.WriteFile(mb.SolutionPath(), []byte(want), 0644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := w.WaitForChange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("WaitForChange() = %q, want %q", got, want)
	}
}

func TestWaitForChangeHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	mb := New(dir, "go")
	w := NewWatcher(mb, 20*time.Millisecond)
	w.Seed()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_, err := w.WaitForChange(ctx)
	if err == nil {
		t.Fatal("expected WaitForChange to return an error when the context is cancelled with no write")
	}
}
