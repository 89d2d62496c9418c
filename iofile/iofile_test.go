// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package iofile

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/shoenig/test/must"
	"github.com/spf13/afero"

	"github.com/shx2/apegears"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		must.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	must.NoError(t, err)
	must.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	must.NoError(t, err)
	_, err = zw.Write([]byte(s))
	must.NoError(t, err)
	must.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReader_Concatenates(t *testing.T) {
	fs := memFs(t, map[string]string{
		"a.txt": "alpha\n",
		"b.txt": "beta\n",
	})

	r := FileInput{Fs: fs}.NewReader([]string{"a.txt", "b.txt"})
	must.Eq(t, "a.txt", r.Name())

	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, "alpha\nbeta\n", string(out))
	must.Eq(t, "", r.Name())
}

func TestReader_Stdin(t *testing.T) {
	r := FileInput{}.NewReader(nil)
	must.Eq(t, []string{"-"}, r.Paths())

	r.Stdin = strings.NewReader("from stdin\n")
	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, "from stdin\n", string(out))
}

func TestReader_MixedStdin(t *testing.T) {
	fs := memFs(t, map[string]string{"a.txt": "file\n"})

	r := FileInput{Fs: fs}.NewReader([]string{"a.txt", "-"})
	r.Stdin = strings.NewReader("stdin\n")

	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, "file\nstdin\n", string(out))
}

func TestReader_Decompress(t *testing.T) {
	fs := afero.NewMemMapFs()
	must.NoError(t, afero.WriteFile(fs, "a.gz", gzipped(t, "gzip data\n"), 0o644))
	must.NoError(t, afero.WriteFile(fs, "b.zst", zstded(t, "zstd data\n"), 0o644))
	must.NoError(t, afero.WriteFile(fs, "c.txt", []byte("plain\n"), 0o644))

	r := FileInput{Fs: fs, Decompress: true}.NewReader([]string{"a.gz", "b.zst", "c.txt"})
	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, "gzip data\nzstd data\nplain\n", string(out))
}

func TestReader_DecompressOff(t *testing.T) {
	raw := gzipped(t, "payload")
	fs := afero.NewMemMapFs()
	must.NoError(t, afero.WriteFile(fs, "a.gz", raw, 0o644))

	r := FileInput{Fs: fs}.NewReader([]string{"a.gz"})
	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, raw, out)
}

func TestReader_LazyOpen(t *testing.T) {
	fs := afero.NewMemMapFs()

	r := FileInput{Fs: fs}.NewReader([]string{"missing.txt"})
	_, err := r.Read(make([]byte, 8))
	must.Error(t, err)
}

func TestReader_Validate(t *testing.T) {
	fs := memFs(t, map[string]string{"ok.txt": "x"})

	r := FileInput{Fs: fs}.NewReader([]string{"ok.txt", "no1.txt", "-", "no2.txt"})
	err := r.Validate()
	must.Error(t, err)
	must.StrContains(t, err.Error(), "no1.txt")
	must.StrContains(t, err.Error(), "no2.txt")

	r = FileInput{Fs: fs}.NewReader([]string{"ok.txt", "-"})
	must.NoError(t, r.Validate())
}

func TestFileInput_ParserIntegration(t *testing.T) {
	fs := memFs(t, map[string]string{
		"a.txt": "one\n",
		"b.txt": "two\n",
	})

	p := apegears.NewParser("cat")
	_, err := FileInput{Fs: fs}.AddTo(p)
	must.NoError(t, err)

	vals, err := p.Parse([]string{"a.txt", "b.txt"})
	must.NoError(t, err)

	v, ok := vals.Get("infiles")
	must.True(t, ok)
	r, ok := v.(*Reader)
	must.True(t, ok)

	out, err := io.ReadAll(r)
	must.NoError(t, err)
	must.Eq(t, "one\ntwo\n", string(out))
}

func TestFileInput_ParserStdinFallback(t *testing.T) {
	p := apegears.NewParser("cat")
	_, err := FileInput{}.AddTo(p)
	must.NoError(t, err)

	vals, err := p.Parse(nil)
	must.NoError(t, err)

	r, ok := vals.Get("infiles")
	must.True(t, ok)
	must.Eq(t, []string{"-"}, r.(*Reader).Paths())
}

func TestFileInput_ValidateFailsParse(t *testing.T) {
	fs := afero.NewMemMapFs()

	p := apegears.NewParser("cat")
	_, err := FileInput{Fs: fs, Validate: true}.AddTo(p)
	must.NoError(t, err)

	_, err = p.Parse([]string{"missing.txt"})
	must.Error(t, err)
	must.StrContains(t, err.Error(), "missing.txt")
}

func TestRegisteredTags(t *testing.T) {
	must.NotNil(t, apegears.DefaultRegistry.Find("infiles"))
	must.NotNil(t, apegears.DefaultRegistry.Find("infile"))
	must.NotNil(t, apegears.DefaultRegistry.Find("outfile"))
}
