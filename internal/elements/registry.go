package elements

import (
	"fmt"
	"sort"

	"github.com/san-kum/beamline/internal/optics"
)

type constructor func(name string, r *paramReader) Element

// Spec describes the parameters an element type accepts.
type Spec struct {
	Kind     Kind
	Required []string
	Optional []string
}

var registry = map[Kind]struct {
	spec Spec
	ctor constructor
}{}

func register(spec Spec, ctor constructor) {
	registry[spec.Kind] = struct {
		spec Spec
		ctor constructor
	}{spec, ctor}
}

// New builds an element of the given kind from its parameters. A missing or
// malformed required parameter yields an *optics.ConfigurationError.
func New(kind Kind, name string, params Params) (Element, error) {
	entry, ok := registry[kind]
	if !ok {
		return nil, &optics.ConfigurationError{Element: name, Reason: fmt.Sprintf("unsupported element type %s", kind)}
	}
	if name == "" {
		name = kind.String()
	}
	r := newParamReader(name, params)
	e := entry.ctor(name, r)
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

// SpecFor returns the parameter description of kind.
func SpecFor(kind Kind) (Spec, bool) {
	entry, ok := registry[kind]
	return entry.spec, ok
}

// Specs lists all registered element types ordered by kind.
func Specs() []Spec {
	out := make([]Spec, 0, len(registry))
	for _, entry := range registry {
		out = append(out, entry.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
