// Package source opens log inputs and expands path patterns into files.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
)

// Stdin is the path that names standard input.
const Stdin = "-"

// ErrNoMatch is returned by Expand when no pattern names an existing file.
var ErrNoMatch = errors.New("no files matched")

var gzipMagic = []byte{0x1f, 0x8b}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// Open returns a reader over the decompressed content of path. Gzip input is
// recognized by its magic bytes, so the extension does not matter.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return Wrap(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := Wrap(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return rc, nil
}

// Wrap sniffs r for gzip and returns a reader over its content. Closing the
// result closes r when r is an io.Closer.
func Wrap(r io.Reader) (io.ReadCloser, error) {
	closeUnderlying := func() error {
		if c, ok := r.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(head) < len(gzipMagic) || head[0] != gzipMagic[0] || head[1] != gzipMagic[1] {
		return readCloser{Reader: br, close: closeUnderlying}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	return readCloser{Reader: zr, close: func() error {
		return errors.Join(zr.Close(), closeUnderlying())
	}}, nil
}

// Expand resolves patterns to a sorted, de-duplicated list of regular files.
// A pattern may be a file, a directory (every file below it), or a doublestar
// glob such as /var/log/**/*.log. Stdin passes through unchanged.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		if pattern == Stdin {
			add(Stdin)
			continue
		}
		if fi, err := os.Stat(pattern); err == nil {
			if !fi.IsDir() {
				add(filepath.Clean(pattern))
				continue
			}
			pattern = filepath.Join(pattern, "**", "*")
		} else if !hasMeta(pattern) {
			return nil, fmt.Errorf("expand %s: %w", pattern, err)
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", pattern, err)
		}
		for _, m := range matches {
			add(filepath.Clean(m))
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, strings.Join(patterns, " "))
	}
	sort.Strings(out)
	return out, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
