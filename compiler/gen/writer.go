package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer renders jennifer files of a graph and writes them to the target
// directory in parallel. Files are formatted with goimports before they
// are written.
type Writer struct {
	graph   *Graph
	workers int

	mu      sync.Mutex
	files   map[string]*jen.File
	metrics *WriterMetrics
}

// WriterMetrics tracks generation performance.
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
	RenderTime     time.Duration
	FormatTime     time.Duration
	WriteTime      time.Duration
}

// NewWriter returns a writer for the target of the graph.
func NewWriter(g *Graph) *Writer {
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Writer{
		graph:   g,
		workers: workers,
		files:   make(map[string]*jen.File),
		metrics: &WriterMetrics{},
	}
}

// NewFile returns a file of the package with the configured header. Files
// of sub-packages, such as "internal", pass their package name.
func (w *Writer) NewFile(pkg string) *jen.File {
	if pkg == "" {
		pkg = w.graph.PackageName()
	}
	f := jen.NewFile(pkg)
	f.HeaderComment(w.graph.header())
	return f
}

// Add registers f to be written at the given path, relative to the target.
// It is safe for concurrent use.
func (w *Writer) Add(name string, f *jen.File) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[filepath.ToSlash(name)] = f
}

// File returns the registered file with the given name, or nil.
func (w *Writer) File(name string) *jen.File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.ToSlash(name)]
}

// Files returns the registered file names in sorted order.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.files))
	for name := range w.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metrics returns the generation metrics.
func (w *Writer) Metrics() *WriterMetrics {
	return w.metrics
}

// Write renders, formats and writes all registered files.
func (w *Writer) Write(ctx context.Context) error {
	if err := os.MkdirAll(w.graph.Target, 0o755); err != nil {
		return NewGenerationError("write", w.graph.Target, "create output directory", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, name := range w.Files() {
		f := w.File(name)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return w.write(name, f)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	w.graph.Log().Debug("wrote files",
		"count", w.metrics.FilesGenerated,
		"bytes", w.metrics.TotalBytes,
		"render", w.metrics.RenderTime,
		"format", w.metrics.FormatTime,
	)
	return nil
}

func (w *Writer) write(name string, f *jen.File) error {
	var (
		buf  bytes.Buffer
		path = filepath.Join(w.graph.Target, filepath.FromSlash(name))
	)
	start := time.Now()
	if err := f.Render(&buf); err != nil {
		return NewGenerationError("render", name, "rendering file", err)
	}
	rendered := time.Now()
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		debug := path + ".error"
		_ = os.MkdirAll(filepath.Dir(debug), 0o755)
		_ = os.WriteFile(debug, buf.Bytes(), 0o644)
		return NewGenerationError("format", name, fmt.Sprintf("unformatted output written to %s", debug), err)
	}
	formattedAt := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewGenerationError("write", name, "create directory", err)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return NewGenerationError("write", name, "write file", err)
	}
	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(formatted))
	w.metrics.RenderTime += rendered.Sub(start)
	w.metrics.FormatTime += formattedAt.Sub(rendered)
	w.metrics.WriteTime += time.Since(formattedAt)
	w.mu.Unlock()
	return nil
}
