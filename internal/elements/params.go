package elements

import (
	"strconv"
	"strings"

	"github.com/san-kum/beamline/internal/optics"
)

// Params holds the raw parameter values of one element instance, keyed by
// parameter name. Lookups are case-insensitive.
type Params map[string]string

// Set stores a value under the normalised name.
func (p Params) Set(name, value string) {
	p[normalize(name)] = strings.TrimSpace(value)
}

func (p Params) lookup(name string) (string, bool) {
	v, ok := p[normalize(name)]
	if !ok {
		for k, val := range p {
			if normalize(k) == normalize(name) {
				return val, true
			}
		}
	}
	return v, ok
}

// Has reports whether the parameter is present.
func (p Params) Has(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// paramReader accumulates the first error while constructors pull values.
type paramReader struct {
	element string
	params  Params
	err     error
}

func newParamReader(element string, p Params) *paramReader {
	if p == nil {
		p = Params{}
	}
	return &paramReader{element: element, params: p}
}

func (r *paramReader) fail(param, reason string, wrapped error) {
	if r.err != nil {
		return
	}
	r.err = &optics.ConfigurationError{Element: r.element, Parameter: param, Reason: reason, Wrapped: wrapped}
}

func (r *paramReader) required(name string) float64 {
	raw, ok := r.params.lookup(name)
	if !ok || raw == "" {
		r.fail(name, "", optics.ErrMissingParameter)
		return 0
	}
	return r.parse(name, raw)
}

func (r *paramReader) optional(name string, def float64) float64 {
	raw, ok := r.params.lookup(name)
	if !ok || raw == "" {
		return def
	}
	return r.parse(name, raw)
}

func (r *paramReader) text(name, def string) string {
	raw, ok := r.params.lookup(name)
	if !ok || raw == "" {
		return def
	}
	return raw
}

func (r *paramReader) parse(name, raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(name, "not a number: "+raw, nil)
		return 0
	}
	return v
}

func (r *paramReader) positive(name string, v float64) float64 {
	if v <= 0 {
		r.fail(name, "must be positive, got "+strconv.FormatFloat(v, 'g', -1, 64), nil)
	}
	return v
}

func (r *paramReader) nonNegative(name string, v float64) float64 {
	if v < 0 {
		r.fail(name, "must not be negative, got "+strconv.FormatFloat(v, 'g', -1, 64), nil)
	}
	return v
}
