package beamline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
)

// Row is one line of a beamline parameter table.
type Row struct {
	Element   string `csv:"Element" yaml:"element"`
	Parameter string `csv:"Parameter" yaml:"parameter"`
	Value     string `csv:"Value" yaml:"value"`
	Comment   string `csv:"Comment,omitempty" yaml:"comment,omitempty"`
}

// Table is an ordered list of rows.
type Table []Row

// nameParam starts a new element instance and names it.
const nameParam = "name"

// LoadTable reads a CSV table with an Element,Parameter,Value[,Comment]
// header. Blank rows and rows whose Element starts with '#' are skipped.
func LoadTable(r io.Reader) (Table, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, &optics.ConfigurationError{Reason: "malformed beamline table", Wrapped: err}
	}
	out := make(Table, 0, len(rows))
	for _, row := range rows {
		el := strings.TrimSpace(row.Element)
		if el == "" || strings.HasPrefix(el, "#") {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func LoadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open beamline table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// WriteTable writes t as CSV.
func WriteTable(w io.Writer, t Table) error {
	return gocsv.Marshal([]Row(t), w)
}

// instance is the group of rows describing one element.
type instance struct {
	kind   string
	name   string
	first  int
	last   int
	params elements.Params
	rows   map[string]int
}

// group splits the table into element instances. Row numbers are 1-based.
func (t Table) group() []*instance {
	var out []*instance
	var cur *instance
	for i, row := range t {
		kind := strings.TrimSpace(row.Element)
		param := strings.ToLower(strings.TrimSpace(row.Parameter))
		n := i + 1

		fresh := cur == nil || !strings.EqualFold(cur.kind, kind)
		if !fresh && param == nameParam && (cur.name != "" || len(cur.params) > 0) {
			fresh = true
		}
		if !fresh && param != nameParam && cur.params.Has(param) {
			fresh = true
		}
		if fresh {
			cur = &instance{kind: kind, first: n, params: elements.Params{}, rows: map[string]int{}}
			out = append(out, cur)
		}

		cur.last = n
		if param == nameParam {
			cur.name = strings.TrimSpace(row.Value)
			continue
		}
		if param == "" {
			continue
		}
		cur.params.Set(param, row.Value)
		cur.rows[param] = n
	}
	return out
}

// With returns a copy of t in which parameter param of the element named
// name is set to value. The row is added to the element when absent.
func (t Table) With(name, param, value string) (Table, error) {
	for i, inst := range t.group() {
		if instanceName(inst, i) != name {
			continue
		}
		out := make(Table, len(t), len(t)+1)
		copy(out, t)
		if n, ok := inst.rows[strings.ToLower(param)]; ok {
			out[n-1].Value = value
			return out, nil
		}
		row := Row{Element: inst.kind, Parameter: param, Value: value}
		out = append(out[:inst.last], append(Table{row}, out[inst.last:]...)...)
		return out, nil
	}
	return nil, &optics.ConfigurationError{Element: name, Parameter: param, Reason: "no such element"}
}

func instanceName(inst *instance, i int) string {
	if inst.name != "" {
		return inst.name
	}
	if kind, err := elements.ParseKind(inst.kind); err == nil {
		return fmt.Sprintf("%s%d", kind, i)
	}
	return inst.kind
}

// FromTable builds and lays out a beamline from t. It fails on the first
// unknown element type or missing or invalid parameter with an
// *optics.ConfigurationError naming the element, parameter and row.
func FromTable(ref *physics.Reference, t Table) (*BeamLine, error) {
	bl := New(ref)
	for i, inst := range t.group() {
		kind, err := elements.ParseKind(inst.kind)
		if err != nil {
			return nil, &optics.ConfigurationError{Element: inst.kind, Row: inst.first, Reason: "unknown element type"}
		}
		e, err := elements.New(kind, instanceName(inst, i), inst.params)
		if err != nil {
			return nil, withRow(err, inst)
		}
		if err := bl.Append(e); err != nil {
			return nil, withRow(err, inst)
		}
	}
	if err := bl.Build(); err != nil {
		return nil, err
	}
	return bl, nil
}

func withRow(err error, inst *instance) error {
	var cfg *optics.ConfigurationError
	if !errors.As(err, &cfg) {
		return err
	}
	cfg.Row = inst.first
	if n, ok := inst.rows[strings.ToLower(cfg.Parameter)]; ok {
		cfg.Row = n
	}
	return cfg
}
