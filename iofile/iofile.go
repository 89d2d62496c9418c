// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

// Package iofile provides file-valued argument types: a lazily-opened
// multi-file input stream for commands that read all their inputs as one,
// and single-file handles that only touch the filesystem on first use.
//
// The types here are SpecProviders, so an instance can be passed directly
// as an adder's Type. The zero-value specs are also registered in
// apegears.DefaultRegistry under the tags "infiles", "infile" and
// "outfile".
package iofile

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/posener/complete"
	"github.com/spf13/afero"

	"github.com/shx2/apegears"
)

// FileInput is an argument type for commands that read a set of input
// files as a single stream. The parsed value is a *Reader over the paths
// in command-line order; no file is opened until the Reader is read.
type FileInput struct {
	// Decompress enables transparent decompression of inputs by
	// extension: .gz, .bz2 and .zst.
	Decompress bool

	// Validate opens every input at parse time and aggregates the
	// failures, so a bad path fails the parse instead of the first Read.
	Validate bool

	// Fs is the filesystem inputs are opened from; nil means the real one.
	Fs afero.Fs
}

// ArgSpec implements apegears.SpecProvider.
func (fi FileInput) ArgSpec() *apegears.Spec {
	return &apegears.Spec{
		Names:       []string{"infiles"},
		FromString:  inputPath,
		PostProcess: fi.postProcess,
		Help:        "Input files to read, in order. '-' means standard input.",
		Metavar:     "INFILE",
		Completion:  complete.PredictFiles("*"),
	}
}

// AddTo registers the conventional input-files argument on a parser: a
// zero-or-more positional that falls back to standard input when no paths
// are given.
func (fi FileInput) AddTo(p *apegears.Parser) (*apegears.Argument, error) {
	return p.AddPositional(&apegears.PositionalVar{
		NArgs: apegears.ZeroOrMore,
		Type:  fi,
	})
}

// NewReader returns a Reader over paths with this input's configuration.
// An empty paths means standard input.
func (fi FileInput) NewReader(paths []string) *Reader {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	return &Reader{
		paths:      paths,
		decompress: fi.Decompress,
		fs:         fi.Fs,
	}
}

// inputPath cleans a path token, passing the stdin marker through.
func inputPath(s string) (interface{}, error) {
	if s == "-" {
		return s, nil
	}
	return apegears.Path(s)
}

func (fi FileInput) postProcess(v interface{}) (interface{}, error) {
	var paths []string
	switch x := v.(type) {
	case string:
		paths = []string{x}
	case []interface{}:
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("input files got %T element, want a path", e)
			}
			paths = append(paths, s)
		}
	default:
		return nil, fmt.Errorf("input files got %T, want paths", v)
	}

	r := fi.NewReader(paths)
	if fi.Validate {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Reader reads a sequence of input files as one concatenated stream.
// Files open lazily as the read position reaches them; "-" reads standard
// input.
type Reader struct {
	// Stdin is the stream "-" reads from; nil means os.Stdin.
	Stdin io.Reader

	paths      []string
	decompress bool
	fs         afero.Fs

	idx int
	cur io.ReadCloser
}

// Name returns the path the next Read draws from, or "" once the stream
// is exhausted.
func (r *Reader) Name() string {
	if r.idx >= len(r.paths) {
		return ""
	}
	return r.paths[r.idx]
}

// Paths returns the input paths in read order.
func (r *Reader) Paths() []string {
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

func (r *Reader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.idx >= len(r.paths) {
				return 0, io.EOF
			}
			cur, err := r.open(r.paths[r.idx])
			if err != nil {
				return 0, err
			}
			r.cur = cur
		}
		n, err := r.cur.Read(p)
		if err == io.EOF {
			cerr := r.cur.Close()
			r.cur = nil
			r.idx++
			if cerr != nil {
				return n, cerr
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close closes the file currently open, if any, and stops the stream.
func (r *Reader) Close() error {
	r.idx = len(r.paths)
	if r.cur == nil {
		return nil
	}
	cur := r.cur
	r.cur = nil
	return cur.Close()
}

// Validate checks that every input can be opened, aggregating the
// failures. The stdin marker is always considered openable.
func (r *Reader) Validate() error {
	var mErr *multierror.Error
	for _, path := range r.paths {
		if path == "-" {
			continue
		}
		f, err := r.filesystem().Open(path)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}
		_ = f.Close()
	}
	return mErr.ErrorOrNil()
}

func (r *Reader) filesystem() afero.Fs {
	if r.fs != nil {
		return r.fs
	}
	return afero.NewOsFs()
}

func (r *Reader) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

// open opens one input, wrapping a decompressor around it when the
// extension asks for one.
func (r *Reader) open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(r.stdin()), nil
	}
	f, err := r.filesystem().Open(path)
	if err != nil {
		return nil, err
	}
	if !r.decompress {
		return f, nil
	}

	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &closeWrapper{ReadCloser: zr, onClose: f.Close}, nil
	case ".bz2":
		return &closeWrapper{ReadCloser: io.NopCloser(bzip2.NewReader(f)), onClose: f.Close}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &closeWrapper{ReadCloser: zr.IOReadCloser(), onClose: f.Close}, nil
	}
	return f, nil
}

// closeWrapper closes a decompressor and then the file under it.
type closeWrapper struct {
	io.ReadCloser
	onClose func() error
}

func (cw *closeWrapper) Close() error {
	err1 := cw.ReadCloser.Close()
	err2 := cw.onClose()
	if err1 != nil {
		return err1
	}
	return err2
}

func init() {
	apegears.Register("infiles", FileInput{})
	apegears.Register("infile", Input)
	apegears.Register("outfile", Output)
}
