package gen

import (
	"fmt"
	"maps"
	"slices"

	qschema "github.com/syssam/quarry/schema"
)

// argKind is the kind of expression an attribute argument accepts.
type argKind uint8

const (
	argAny argKind = iota
	argString
	argFields
)

func (k argKind) String() string {
	switch k {
	case argString:
		return "a string"
	case argFields:
		return "a list of fields"
	default:
		return "a value"
	}
}

func (k argKind) accepts(e qschema.Expr) bool {
	switch k {
	case argString:
		_, ok := qschema.StringValue(e)
		return ok
	case argFields:
		_, ok := qschema.Idents(e)
		return ok
	default:
		return e != nil
	}
}

// attrArgs describes the arguments of an attribute. The unnamed argument,
// if any, may also be passed by its name.
type attrArgs struct {
	name     string
	kind     argKind
	required bool
	named    map[string]argKind
}

var (
	mapOnly    = map[string]argKind{"map": argString}
	fieldsArgs = attrArgs{name: "fields", kind: argFields, required: true, named: map[string]argKind{"name": argString, "map": argString}}

	fieldAttrArgs = map[string]attrArgs{
		"id":        {named: mapOnly},
		"unique":    {named: mapOnly},
		"updatedAt": {},
		"map":       {name: "name", kind: argString, required: true},
		"default":   {name: "value", required: true, named: mapOnly},
	}
	blockAttrArgs = map[string]attrArgs{
		"id":     fieldsArgs,
		"unique": fieldsArgs,
		"index":  fieldsArgs,
		"map":    {name: "name", kind: argString, required: true},
	}
)

// checkArgs reports malformed arguments of a known attribute. The prefix
// is "@" for field attributes and "@@" for block attributes.
func checkArgs(prefix string, a *qschema.Attribute, spec attrArgs) []string {
	var (
		errs  []string
		seen  = make(map[string]bool)
		attr  = prefix + a.Name
		nopos = 0
	)
	check := func(name string, kind argKind, e qschema.Expr) {
		if seen[name] {
			errs = append(errs, fmt.Sprintf("%s has argument %q more than once", attr, name))
			return
		}
		seen[name] = true
		if !kind.accepts(e) {
			errs = append(errs, fmt.Sprintf("%s argument %q must be %s, got %s", attr, name, kind, e))
		}
	}
	for _, arg := range a.Args {
		switch {
		case arg.Name == "" && spec.name == "":
			errs = append(errs, fmt.Sprintf("%s does not accept unnamed arguments", attr))
		case arg.Name == "":
			if nopos++; nopos > 1 {
				errs = append(errs, fmt.Sprintf("%s accepts one unnamed argument", attr))
				continue
			}
			check(spec.name, spec.kind, arg.Value)
		case arg.Name == spec.name:
			check(spec.name, spec.kind, arg.Value)
		default:
			kind, ok := spec.named[arg.Name]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s has unknown argument %q (allowed: %v)", attr, arg.Name, allowedArgs(spec)))
				continue
			}
			check(arg.Name, kind, arg.Value)
		}
	}
	if spec.required && !seen[spec.name] {
		errs = append(errs, fmt.Sprintf("%s requires %s", attr, spec.kind))
	}
	return errs
}

func allowedArgs(spec attrArgs) []string {
	names := slices.Sorted(maps.Keys(spec.named))
	if spec.name != "" {
		names = append([]string{spec.name}, names...)
	}
	return names
}
