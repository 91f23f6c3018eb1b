package tailer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/watcher"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func start(t *testing.T, path string, opts Options) (*Tailer, context.CancelFunc) {
	t.Helper()
	w, err := watcher.New([]string{path}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	opts.Logger = quiet
	tail := New(w, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	go tail.Start(ctx)

	t.Cleanup(func() {
		cancel()
		for range tail.Lines() {
		}
	})
	return tail, cancel
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatal(err)
	}
}

func expectLine(t *testing.T, tail *Tailer, want string) Line {
	t.Helper()
	select {
	case l := <-tail.Lines():
		if l.Text != want {
			t.Errorf("expected %q, got %q", want, l.Text)
		}
		return l
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
	return Line{}
}

func TestTailNewLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	if err := os.WriteFile(logPath, []byte("existing line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tail, _ := start(t, logPath, Options{})

	// Give the tailer a moment to seek to the end.
	time.Sleep(300 * time.Millisecond)
	appendTo(t, logPath, "hello from test\n")

	l := expectLine(t, tail, "hello from test")
	if filepath.Base(l.Source) != "test.log" {
		t.Errorf("expected source test.log, got %q", l.Source)
	}
}

func TestTailFromStart(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tail, _ := start(t, logPath, Options{FromStart: true})

	expectLine(t, tail, "first")
	expectLine(t, tail, "second")
}

func TestTailPartialLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	tail, _ := start(t, logPath, Options{})
	time.Sleep(300 * time.Millisecond)

	appendTo(t, logPath, "Failed password for ")
	time.Sleep(200 * time.Millisecond)
	select {
	case l := <-tail.Lines():
		t.Fatalf("fragment emitted early: %q", l.Text)
	default:
	}

	appendTo(t, logPath, "root\n")
	expectLine(t, tail, "Failed password for root")
}
