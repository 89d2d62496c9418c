// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package iofile

import (
	"fmt"
	"io"
	"os"

	"github.com/posener/complete"
	"github.com/spf13/afero"

	"github.com/shx2/apegears"
)

// Input is the FileType for reading an existing file.
var Input = FileType{Flag: os.O_RDONLY}

// Output is the FileType for writing a file, creating or truncating it.
var Output = FileType{Flag: os.O_WRONLY | os.O_CREATE | os.O_TRUNC}

// FileType is an argument type for a single file handle. Opening is lazy:
// the parsed value is a *File whose first Read or Write opens the
// underlying file, so parsing a command line never creates or truncates
// a destination the command ends up not touching.
type FileType struct {
	// Flag is the open mode, os.O_RDONLY to read or a write mode such as
	// os.O_WRONLY|os.O_CREATE|os.O_TRUNC. Zero means read.
	Flag int

	// Perm is the mode bits for created files; zero means 0644.
	Perm os.FileMode

	// Fs is the filesystem files are opened from; nil means the real one.
	Fs afero.Fs
}

func (ft FileType) writeMode() bool {
	return ft.Flag&(os.O_WRONLY|os.O_RDWR) != 0
}

// ArgSpec implements apegears.SpecProvider.
func (ft FileType) ArgSpec() *apegears.Spec {
	name := "infile"
	if ft.writeMode() {
		name = "outfile"
	}
	return &apegears.Spec{
		Names: []string{name},
		FromString: func(s string) (interface{}, error) {
			return ft.File(s), nil
		},
		Metavar:    "FILE",
		Completion: complete.PredictFiles("*"),
	}
}

// File returns a lazy handle on path. "-" binds standard input or
// standard output, depending on the mode.
func (ft FileType) File(path string) *File {
	return &File{
		path: path,
		flag: ft.Flag,
		perm: ft.Perm,
		fs:   ft.Fs,
	}
}

// File is a lazily-opened file. It satisfies io.ReadWriteCloser; the
// first Read or Write performs the open, and an open failure is returned
// from that call (and every later one).
type File struct {
	path string
	flag int
	perm os.FileMode
	fs   afero.Fs

	opened bool
	f      afero.File
	err    error
}

// Name returns the path the handle was built from.
func (f *File) Name() string { return f.path }

func (f *File) open() error {
	if f.opened {
		return f.err
	}
	f.opened = true
	if f.path == "-" {
		return nil
	}
	fs := f.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	perm := f.perm
	if perm == 0 {
		perm = 0o644
	}
	f.f, f.err = fs.OpenFile(f.path, f.flag, perm)
	if f.err != nil {
		f.err = fmt.Errorf("open %s: %w", f.path, f.err)
	}
	return f.err
}

func (f *File) Read(p []byte) (int, error) {
	if err := f.open(); err != nil {
		return 0, err
	}
	if f.f == nil {
		return os.Stdin.Read(p)
	}
	return f.f.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.open(); err != nil {
		return 0, err
	}
	if f.f == nil {
		return os.Stdout.Write(p)
	}
	return f.f.Write(p)
}

// Close closes the file if it was ever opened. The standard streams are
// left alone.
func (f *File) Close() error {
	if !f.opened || f.f == nil {
		return nil
	}
	file := f.f
	f.f = nil
	return file.Close()
}

var _ io.ReadWriteCloser = (*File)(nil)
