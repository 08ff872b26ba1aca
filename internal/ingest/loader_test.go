package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/agentic-research/tangodb/internal/graph"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

// classNames returns the "class" value of every document, or "-" for
// documents without one.
func classNames(docs []any) []string {
	var out []string
	for _, d := range docs {
		f, ok := d.(*graph.Fields)
		if !ok {
			out = append(out, "-")
			continue
		}
		v, ok := f.Get("class")
		if !ok {
			out = append(out, "-")
			continue
		}
		out = append(out, graph.ScalarString(v))
	}
	return out
}

func TestLoader_WalkOrder(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/cfg/b.yml", "class: B1\n---\n---\nclass: B2\n")
	writeFile(t, fs, "/cfg/a.yaml", "class: A\n")
	writeFile(t, fs, "/cfg/__init__.yml", "class: Init\n")
	writeFile(t, fs, "/cfg/notes.txt", "class: Ignored\n")
	writeFile(t, fs, "/cfg/sub/x.yml", "class: SubX\n")
	writeFile(t, fs, "/cfg/sub/__init__.yml", "class: SubInit\n")
	writeFile(t, fs, "/shared/s.yml", "class: Shared\n")
	require.NoError(t, fs.Symlink("/shared", "/cfg/link"))
	require.NoError(t, fs.Symlink("/cfg", "/cfg/sub/back"))

	docs, err := NewLoader(fs, WithWorkers(2)).Load(context.Background(), "/cfg")
	require.NoError(t, err)
	assert.Equal(t, []string{"Init", "A", "B1", "B2", "Shared", "SubInit", "SubX"}, classNames(docs))
}

func TestLoader_RootErrors(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/file.yml", "class: A\n")

	_, err := NewLoader(fs).Load(context.Background(), "/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewLoader(fs).Load(context.Background(), "/file.yml")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestLoader_BadFileIsSkipped(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/cfg/a.yml", "class: A\n")
	writeFile(t, fs, "/cfg/bad.yml", "server: [unterminated\n")
	writeFile(t, fs, "/cfg/loop.yml", "a: &x\n  b: *x\n")
	writeFile(t, fs, "/cfg/z.yml", "class: Z\n")

	docs, err := NewLoader(fs).Load(context.Background(), "/cfg")
	require.Error(t, err)
	assert.Equal(t, []string{"A", "Z"}, classNames(docs))

	skipped := FileErrors(err)
	require.Len(t, skipped, 2)
	assert.Contains(t, skipped[0].Error(), "/cfg/bad.yml")
	assert.Contains(t, skipped[1].Error(), "/cfg/loop.yml")
	assert.ErrorIs(t, skipped[1], ErrAliasExpansion)

	var fe *FileError
	require.ErrorAs(t, skipped[0], &fe)
	assert.Equal(t, "/cfg/bad.yml", fe.Path)
}

func TestFileErrors_WholeLoadFailure(t *testing.T) {
	_, err := NewLoader(memfs.New()).Load(context.Background(), "/missing")
	require.Error(t, err)
	assert.Nil(t, FileErrors(err))
	assert.Nil(t, FileErrors(nil))
}

func TestDecodeYAML_RecursiveAlias(t *testing.T) {
	for name, src := range map[string]string{
		"value": "a: &x\n  b: *x\n",
		"list":  "a: &x\n  - *x\n",
		"merge": "a: &x\n  <<: *x\n  c: 1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeYAML(strings.NewReader(src))
			require.ErrorIs(t, err, ErrAliasExpansion)
			assert.Contains(t, err.Error(), "recursive alias")
		})
	}
}

func TestDecodeYAML_AliasExpansionIsBounded(t *testing.T) {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for j := range 10 {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}

	_, err := DecodeYAML(strings.NewReader(b.String()))
	require.ErrorIs(t, err, ErrAliasExpansion)
	assert.Contains(t, err.Error(), "more than")
}

func TestDecodeYAML_SharedAliases(t *testing.T) {
	docs, err := DecodeYAML(strings.NewReader("base: &b {unit: mm}\none: *b\ntwo: [*b, *b]\n"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	two, _ := docs[0].(*graph.Fields).Get("two")
	require.Len(t, two, 2)
	unit, _ := two.([]any)[1].(*graph.Fields).Get("unit")
	assert.Equal(t, "mm", unit)
}

func TestLoader_SnapshotFiles(t *testing.T) {
	dbPath := createTestDB(t, []string{`{"class":"FromSnapshot"}`})
	raw, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	fs := memfs.New()
	writeFile(t, fs, "/cfg/a.yml", "class: A\n")
	writeFile(t, fs, "/cfg/z.db", string(raw))

	docs, err := NewLoader(fs).Load(context.Background(), "/cfg")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "FromSnapshot"}, classNames(docs))
}

func TestLoadDir_HostFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/__init__.yml", []byte("class: Host\n"), 0o644))

	docs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Host"}, classNames(docs))
}

func TestDecodeYAML_OrderAndMerge(t *testing.T) {
	docs, err := DecodeYAML(strings.NewReader(`
base: &base
  unit: mm
  format: "%d"
server: S
personal_name: "01"
device:
  - tango_name: a/b/c
    properties:
      <<: *base
      unit: cm
      limits: [0, 10]
`))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0].(*graph.Fields)
	var keys []string
	for p := doc.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"base", "server", "personal_name", "device"}, keys)
	v, _ := doc.Get("personal_name")
	assert.Equal(t, "01", v, "quoted scalars stay strings")

	devices, _ := doc.Get("device")
	dev := devices.([]any)[0].(*graph.Fields)
	raw, _ := dev.Get("properties")
	props := raw.(*graph.Fields)
	unit, _ := props.Get("unit")
	assert.Equal(t, "cm", unit, "explicit keys win over merged ones")
	format, _ := props.Get("format")
	assert.Equal(t, "%d", format)
	limits, _ := props.Get("limits")
	assert.Equal(t, []any{0, 10}, limits)
}
