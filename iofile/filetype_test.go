// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package iofile

import (
	"io"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/spf13/afero"

	"github.com/shx2/apegears"
)

func TestFileType_LazyWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	ft := Output
	ft.Fs = fs

	f := ft.File("out.txt")
	must.Eq(t, "out.txt", f.Name())

	// Nothing is created until the first write.
	exists, err := afero.Exists(fs, "out.txt")
	must.NoError(t, err)
	must.False(t, exists)

	_, err = f.Write([]byte("hello\n"))
	must.NoError(t, err)
	must.NoError(t, f.Close())

	content, err := afero.ReadFile(fs, "out.txt")
	must.NoError(t, err)
	must.Eq(t, "hello\n", string(content))
}

func TestFileType_Read(t *testing.T) {
	fs := memFs(t, map[string]string{"in.txt": "content\n"})
	ft := Input
	ft.Fs = fs

	f := ft.File("in.txt")
	out, err := io.ReadAll(f)
	must.NoError(t, err)
	must.Eq(t, "content\n", string(out))
	must.NoError(t, f.Close())
}

func TestFileType_OpenErrorOnFirstUse(t *testing.T) {
	fs := afero.NewMemMapFs()
	ft := Input
	ft.Fs = fs

	f := ft.File("missing.txt")
	_, err := f.Read(make([]byte, 4))
	must.Error(t, err)
	must.StrContains(t, err.Error(), "open missing.txt")

	// The failure is sticky.
	_, err2 := f.Read(make([]byte, 4))
	must.Eq(t, err.Error(), err2.Error())
}

func TestFileType_ParserIntegration(t *testing.T) {
	fs := memFs(t, map[string]string{"src.txt": "data"})

	in := Input
	in.Fs = fs
	out := Output
	out.Fs = fs

	p := apegears.NewParser("copyfile")
	_, err := p.AddPositional(&apegears.PositionalVar{Type: in})
	must.NoError(t, err)
	_, err = p.AddPositional(&apegears.PositionalVar{Type: out})
	must.NoError(t, err)

	vals, err := p.Parse([]string{"src.txt", "dst.txt"})
	must.NoError(t, err)

	src := mustFile(t, vals, "infile")
	dst := mustFile(t, vals, "outfile")

	// Parsing alone must not have created the destination.
	exists, err := afero.Exists(fs, "dst.txt")
	must.NoError(t, err)
	must.False(t, exists)

	_, err = io.Copy(dst, src)
	must.NoError(t, err)
	must.NoError(t, src.Close())
	must.NoError(t, dst.Close())

	content, err := afero.ReadFile(fs, "dst.txt")
	must.NoError(t, err)
	must.Eq(t, "data", string(content))
}

func mustFile(t *testing.T, vals *apegears.Values, dest string) *File {
	t.Helper()
	v, ok := vals.Get(dest)
	must.True(t, ok)
	f, ok := v.(*File)
	must.True(t, ok)
	return f
}
