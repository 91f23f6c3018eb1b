// Package tailer follows watched files and emits each complete line appended to
// them.
package tailer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/watcher"
)

// Line is one complete line read from Source.
type Line struct {
	Source string
	Text   string
}

// Options configures a Tailer.
type Options struct {
	// FromStart emits the existing content of files present at startup instead
	// of starting at their end.
	FromStart bool

	ReconnectAttempts int           // default 5
	ReconnectDelay    time.Duration // default 1s
	Logger            *slog.Logger
}

// Tailer reads newly appended lines from watched files.
type Tailer struct {
	mu    sync.Mutex
	files map[string]*trackedFile
	out   chan Line
	watch *watcher.Watcher
	opts  Options
	log   *slog.Logger
	done  bool // set by closeAll; no file may be opened after it
}

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial strings.Builder // bytes after the last newline
}

// New creates a Tailer fed by w.
func New(w *watcher.Watcher, opts Options) *Tailer {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 5
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tailer{
		files: make(map[string]*trackedFile),
		out:   make(chan Line, 512),
		watch: w,
		opts:  opts,
		log:   opts.Logger,
	}
}

// Lines returns the channel of complete lines. It is closed when Start returns.
func (t *Tailer) Lines() <-chan Line {
	return t.out
}

// Start processes watcher events until ctx is done or the watcher stops.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)
	defer t.closeAll()

	for _, p := range t.watch.Paths() {
		t.openFile(p, t.opts.FromStart)
		if t.opts.FromStart {
			t.readNewLines(ctx, p)
		}
	}

	events := t.watch.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.handleEvent(ctx, ev)
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Create != 0:
		// A new file after rotation starts from its beginning.
		t.openFile(ev.Path, true)
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		t.closeFile(ev.Path)
		go t.reconnect(ctx, ev.Path)
	}
}

// openFile starts tracking path at its beginning or its end.
func (t *Tailer) openFile(path string, fromStart bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists || t.done {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		t.log.Warn("cannot open file", "path", path, "error", err)
		return
	}

	var offset int64
	if !fromStart {
		if offset, err = f.Seek(0, io.SeekEnd); err != nil {
			t.log.Warn("cannot seek", "path", path, "error", err)
			f.Close()
			return
		}
	}
	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		reader: bufio.NewReader(f),
		offset: offset,
	}
}

// readNewLines emits every complete line between the last offset and EOF. A
// trailing fragment is held until its newline arrives.
func (t *Tailer) readNewLines(ctx context.Context, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tf, ok := t.files[path]
	if !ok {
		return
	}
	if fi, err := tf.file.Stat(); err == nil && fi.Size() < tf.offset {
		t.log.Info("file truncated; reading from start", "path", path)
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			return
		}
		tf.reader.Reset(tf.file)
		tf.offset = 0
		tf.partial.Reset()
	}

	for {
		chunk, err := tf.reader.ReadString('\n')
		tf.offset += int64(len(chunk))
		if err != nil {
			tf.partial.WriteString(chunk)
			if !errors.Is(err, io.EOF) {
				t.log.Warn("read error", "path", path, "error", err)
			}
			return
		}

		text := strings.TrimRight(chunk, "\r\n")
		if tf.partial.Len() > 0 {
			text = tf.partial.String() + text
			tf.partial.Reset()
		}
		select {
		case t.out <- Line{Source: path, Text: text}:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a rotated file to reappear.
func (t *Tailer) reconnect(ctx context.Context, path string) {
	for i := 0; i < t.opts.ReconnectAttempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.opts.ReconnectDelay):
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := t.watch.Add(path); err != nil {
			t.log.Warn("cannot re-watch rotated file", "path", path, "error", err)
		}
		t.log.Info("reconnected to rotated file", "path", path)
		t.openFile(path, true)
		t.readNewLines(ctx, path)
		return
	}
	t.log.Warn("gave up reconnecting", "path", path, "attempts", t.opts.ReconnectAttempts)
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
