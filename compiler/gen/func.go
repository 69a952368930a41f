package gen

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rules    = ruleset()
	acronyms = make(map[string]struct{})
	title    = cases.Title(language.English, cases.NoLower)
)

// ruleset returns the pluralization rules used for generated names. It
// avoids irregular forms so names stay predictable ("Person" -> "Persons").
func ruleset() *inflect.Ruleset {
	r := inflect.NewRuleset()
	r.AddPlural("", "s")
	r.AddPlural("s", "ses")
	r.AddPlural("x", "xes")
	r.AddPlural("z", "zes")
	r.AddPlural("ch", "ches")
	r.AddPlural("sh", "shes")
	r.AddPlural("y", "ies")
	for _, v := range []string{"ay", "ey", "iy", "oy", "uy"} {
		r.AddPlural(v, v+"s")
	}
	for _, w := range []string{"data", "metadata", "info", "equipment", "information", "series", "species", "news"} {
		r.AddUncountable(w)
	}
	// Common initialisms from golint.
	for _, w := range []string{
		"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GB", "GUID",
		"HCL", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "KB", "LHS", "MAC",
		"MB", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SQL", "SSH", "SSO",
		"TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI", "URL", "UTF8", "UUID",
		"VM", "XML", "XMPP", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		r.AddAcronym(w)
	}
	return r
}

// plural returns the plural form of a name. Names that are already
// plural or uncountable get a "Slice" suffix.
func plural(name string) string {
	p := rules.Pluralize(name)
	if p == name {
		p += "Slice"
	}
	return p
}

// pascal converts snake_case or kebab-case words into PascalCase and
// keeps known initialisms upper-cased (user_id -> UserID).
func pascal(s string) string {
	words := strings.FieldsFunc(s, isSeparator)
	for i, w := range words {
		upper := strings.ToUpper(w)
		if _, ok := acronyms[upper]; ok {
			words[i] = upper
			continue
		}
		words[i] = title.String(w)
	}
	return strings.Join(words, "")
}

// camel converts words into camelCase (user_id -> userID).
func camel(s string) string {
	words := strings.FieldsFunc(s, isSeparator)
	if len(words) == 0 {
		return ""
	}
	first := words[0]
	if _, ok := acronyms[strings.ToUpper(first)]; ok {
		first = strings.ToLower(first)
	} else {
		first = strings.ToLower(first[:1]) + first[1:]
	}
	return first + pascal(strings.Join(words[1:], "_"))
}

// snake converts a Go identifier into snake_case (UserID -> user_id).
func snake(s string) string {
	var (
		b     strings.Builder
		runes = []rune(s)
	)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				// A trailing "s" pluralizes an initialism (UserIDs).
				next := i+1 < len(runes) && unicode.IsLower(runes[i+1]) && (runes[i+1] != 's' || i+2 < len(runes))
				prev := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				if prev || (next && unicode.IsUpper(runes[i-1])) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// exported returns the identifier of a schema name in exported form
// without splitting camelCase words (createdAt -> CreatedAt, id -> ID).
func exported(name string) string {
	if name == "" {
		return ""
	}
	if _, ok := acronyms[strings.ToUpper(name)]; ok {
		return strings.ToUpper(name)
	}
	parts := splitWords(name)
	for i, p := range parts {
		if _, ok := acronyms[strings.ToUpper(p)]; ok {
			parts[i] = strings.ToUpper(p)
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// unexported returns the lower-case form of an identifier that is safe to
// use as a Go variable name.
func unexported(name string) string {
	s := exported(name)
	if s == "" {
		return s
	}
	i := 0
	runes := []rune(s)
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}
	switch {
	case i == len(runes):
		s = strings.ToLower(s)
	case i > 1:
		s = strings.ToLower(string(runes[:i-1])) + string(runes[i-1:])
	default:
		s = strings.ToLower(string(runes[:1])) + string(runes[1:])
	}
	if token.Lookup(s).IsKeyword() {
		s = "_" + s
	}
	return s
}

// receiver returns the receiver name of a type: the lower-cased initials
// of its words (UserQuery -> uq).
func receiver(s string) string {
	s = strings.TrimLeft(s, "*[]0123456789")
	parts := splitWords(s)
	var b strings.Builder
	for _, p := range parts {
		r := []rune(p)
		b.WriteRune(unicode.ToLower(r[0]))
	}
	name := b.String()
	if name == "" || token.Lookup(name).IsKeyword() {
		name = "_" + name
	}
	return name
}

// splitWords splits an identifier at case changes and separators and keeps
// runs of upper-case letters together (HTTPClient -> HTTP, Client).
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
		runes = []rune(s)
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for i, r := range runes {
		switch {
		case isSeparator(r):
			flush()
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}
