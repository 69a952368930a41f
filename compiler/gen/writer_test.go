package gen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	target := t.TempDir()
	g := mustGraph(t, blogSchema, WithTarget(target), WithPackage("example.com/app/db"), WithWorkers(2))
	w := NewWriter(g)

	f := w.NewFile("")
	f.Func().Id("Hello").Params().String().Block(jen.Return(jen.Lit("hello")))
	w.Add("hello.go", f)
	internal := w.NewFile("internal")
	internal.Const().Id("Version").Op("=").Lit(1)
	w.Add(filepath.Join("internal", "version.go"), internal)

	assert.Equal(t, []string{"hello.go", "internal/version.go"}, w.Files())
	assert.Same(t, f, w.File("hello.go"))
	assert.Nil(t, w.File("missing.go"))

	require.NoError(t, w.Write(context.Background()))
	out, err := os.ReadFile(filepath.Join(target, "hello.go"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "// "+DefaultHeader)
	assert.Contains(t, string(out), "package db")
	assert.Contains(t, string(out), `return "hello"`)

	out, err = os.ReadFile(filepath.Join(target, "internal", "version.go"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "package internal")

	m := w.Metrics()
	assert.Equal(t, 2, m.FilesGenerated)
	assert.Positive(t, m.TotalBytes)
}

func TestWriter_RenderError(t *testing.T) {
	g := mustGraph(t, blogSchema, WithTarget(t.TempDir()))
	w := NewWriter(g)
	f := w.NewFile("")
	f.Op("}")
	w.Add("broken.go", f)

	err := w.Write(context.Background())
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.Contains(t, err.Error(), "broken.go")
}

func TestWriter_Canceled(t *testing.T) {
	g := mustGraph(t, blogSchema, WithTarget(t.TempDir()))
	w := NewWriter(g)
	w.Add("a.go", w.NewFile(""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx), context.Canceled)
}
