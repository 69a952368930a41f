package schema

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Format writes the canonical text of the schema to w. Blocks are written
// in the order datasources, generators, models, enums; the columns of
// fields and key/value pairs are aligned.
func Format(w io.Writer, s *Schema) error {
	bw := bufio.NewWriter(w)
	first := true
	block := func() {
		if !first {
			bw.WriteString("\n")
		}
		first = false
	}
	for _, d := range s.Datasources {
		block()
		writeKV(bw, "datasource", d.Name, [][2]string{
			{"provider", strconv.Quote(d.Provider)},
			{"url", d.URL.String()},
		})
	}
	for _, g := range s.Generators {
		block()
		kvs := [][2]string{{"provider", strconv.Quote(g.Provider)}}
		if g.Output != "" {
			kvs = append(kvs, [2]string{"output", strconv.Quote(g.Output)})
		}
		keys := make([]string, 0, len(g.Config))
		for k := range g.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			kvs = append(kvs, [2]string{k, strconv.Quote(g.Config[k])})
		}
		writeKV(bw, "generator", g.Name, kvs)
	}
	for _, m := range s.Models {
		block()
		writeModel(bw, m)
	}
	for _, e := range s.Enums {
		block()
		writeEnum(bw, e)
	}
	return bw.Flush()
}

func writeDoc(w *bufio.Writer, doc, indent string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		w.WriteString(indent + "/// " + line + "\n")
	}
}

func writeKV(w *bufio.Writer, keyword, name string, kvs [][2]string) {
	w.WriteString(keyword + " " + name + " {\n")
	width := 0
	for _, kv := range kvs {
		width = max(width, len(kv[0]))
	}
	for _, kv := range kvs {
		w.WriteString("  " + pad(kv[0], width) + " = " + kv[1] + "\n")
	}
	w.WriteString("}\n")
}

func writeModel(w *bufio.Writer, m *Model) {
	writeDoc(w, m.Doc, "")
	w.WriteString("model " + m.Name + " {\n")
	var nameW, typeW int
	for _, f := range m.Fields {
		nameW = max(nameW, len(f.Name))
		typeW = max(typeW, len(f.TypeString()))
	}
	for _, f := range m.Fields {
		writeDoc(w, f.Doc, "  ")
		attrs := make([]string, len(f.Attributes))
		for i, a := range f.Attributes {
			attrs[i] = a.Format("@")
		}
		line := "  " + pad(f.Name, nameW) + " " + pad(f.TypeString(), typeW) + " " + strings.Join(attrs, " ")
		w.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	if len(m.Attributes) > 0 {
		if len(m.Fields) > 0 {
			w.WriteString("\n")
		}
		for _, a := range m.Attributes {
			w.WriteString("  " + a.Format("@@") + "\n")
		}
	}
	w.WriteString("}\n")
}

func writeEnum(w *bufio.Writer, e *Enum) {
	writeDoc(w, e.Doc, "")
	w.WriteString("enum " + e.Name + " {\n")
	for _, v := range e.Values {
		w.WriteString("  " + v.Name)
		if v.DBName != "" {
			w.WriteString(" @map(" + strconv.Quote(v.DBName) + ")")
		}
		w.WriteString("\n")
	}
	if e.DBName != "" {
		w.WriteString("\n  @@map(" + strconv.Quote(e.DBName) + ")\n")
	}
	w.WriteString("}\n")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
