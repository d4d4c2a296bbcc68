package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSpecies   = "proton"
	DefaultKinetic   = 15.0
	DefaultParticles = 1000
	DefaultSeed      = 1
	DefaultWorkers   = 1
	DefaultPreset    = "fodo"
	DefaultOutput    = "runs"
)

// Config describes one tracking run. The beamline comes from the first of
// Elements, BeamLine (a CSV table) or Preset that is set.
type Config struct {
	Species       string         `yaml:"species"`
	KineticEnergy float64        `yaml:"kinetic_energy"`
	Momentum      float64        `yaml:"momentum,omitempty"`
	BeamLine      string         `yaml:"beamline,omitempty"`
	Preset        string         `yaml:"preset,omitempty"`
	Elements      beamline.Table `yaml:"elements,omitempty"`
	Source        SourceConfig   `yaml:"source,omitempty"`
	Particles     int            `yaml:"particles"`
	Seed          int64          `yaml:"seed"`
	Workers       int            `yaml:"workers"`
	Output        string         `yaml:"output"`
	Compress      bool           `yaml:"compress"`
}

// SourceConfig overrides the rms widths configured on the Source element.
// Zero values keep the element's own.
type SourceConfig struct {
	SigmaX     float64 `yaml:"sigma_x,omitempty"`
	SigmaXp    float64 `yaml:"sigma_xp,omitempty"`
	SigmaY     float64 `yaml:"sigma_y,omitempty"`
	SigmaYp    float64 `yaml:"sigma_yp,omitempty"`
	SigmaZ     float64 `yaml:"sigma_z,omitempty"`
	SigmaDelta float64 `yaml:"sigma_delta,omitempty"`
}

// Apply overlays the non-zero widths onto sigma.
func (s SourceConfig) Apply(sigma optics.PhaseSpace) optics.PhaseSpace {
	for i, v := range [optics.Dim]float64{s.SigmaX, s.SigmaXp, s.SigmaY, s.SigmaYp, s.SigmaZ, s.SigmaDelta} {
		if v != 0 {
			sigma[i] = v
		}
	}
	return sigma
}

func DefaultConfig() *Config {
	return &Config{
		Species:       DefaultSpecies,
		KineticEnergy: DefaultKinetic,
		Preset:        DefaultPreset,
		Particles:     DefaultParticles,
		Seed:          DefaultSeed,
		Workers:       DefaultWorkers,
		Output:        DefaultOutput,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Particles < 0 {
		errs = append(errs, fmt.Errorf("particles must not be negative, got %d", c.Particles))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.KineticEnergy <= 0 && c.Momentum <= 0 {
		errs = append(errs, errors.New("one of kinetic_energy or momentum must be positive"))
	}
	if len(c.Elements) == 0 && c.BeamLine == "" && c.Preset == "" {
		errs = append(errs, errors.New("no beamline: set elements, beamline or preset"))
	}
	if c.Preset != "" && GetPreset(c.Preset) == nil && len(c.Elements) == 0 && c.BeamLine == "" {
		errs = append(errs, fmt.Errorf("unknown preset %q", c.Preset))
	}
	return errors.Join(errs...)
}

// Reference builds the reference particle. Momentum takes precedence over
// kinetic energy.
func (c *Config) Reference() (*physics.Reference, error) {
	s, err := physics.LookupSpecies(c.Species)
	if err != nil {
		return nil, err
	}
	if c.Momentum > 0 {
		return physics.NewReferenceFromMomentum(s, c.Momentum)
	}
	return physics.NewReferenceFromKinetic(s, c.KineticEnergy)
}

// Table resolves the beamline parameter table.
func (c *Config) Table() (beamline.Table, error) {
	switch {
	case len(c.Elements) > 0:
		return c.Elements, nil
	case c.BeamLine != "":
		return beamline.LoadTableFile(c.BeamLine)
	case c.Preset != "":
		p := GetPreset(c.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q", c.Preset)
		}
		return p.Table, nil
	}
	return nil, errors.New("no beamline configured")
}

// Build resolves the reference and table and builds the beamline.
func (c *Config) Build() (*beamline.BeamLine, error) {
	ref, err := c.Reference()
	if err != nil {
		return nil, err
	}
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	return beamline.FromTable(ref, table)
}
