package ioutils

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// OpenMaybeCompressed opens a file path or stdin ("-") and returns a buffered
// reader. If the input appears to be gzip (by extension or magic), it wraps
// with gzip.
func OpenMaybeCompressed(path string) (*bufio.Reader, io.Closer, error) {
	if path == Stdin || path == "" {
		br, closer, err := wrap(os.Stdin, false)
		if err != nil {
			return nil, nil, err
		}
		return br, closer, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br, closer, err := wrap(f, filepath.Ext(path) == ".gz")
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return br, closer, nil
}

func wrap(f *os.File, gz bool) (*bufio.Reader, io.Closer, error) {
	br := bufio.NewReader(f)
	if !gz {
		// sniff magic
		b, err := br.Peek(2)
		gz = err == nil && b[0] == 0x1f && b[1] == 0x8b
	}
	if !gz {
		return br, closerFunc(func() error { return closeUnlessStdin(f) }), nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReader(zr), closerFunc(func() error {
		_ = zr.Close()
		return closeUnlessStdin(f)
	}), nil
}

func closeUnlessStdin(f *os.File) error {
	if f == os.Stdin {
		return nil
	}
	return f.Close()
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }
