package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/san-kum/beamline/internal/analysis"
	"github.com/san-kum/beamline/internal/beamio"
	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
)

const (
	metadataFile   = "metadata.json"
	lossesFile     = "losses.csv"
	trajectoryFile = "trajectories.bin"
	envelopeFile   = "envelope.json"
	tableFile      = "beamline.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	Species       string             `json:"species"`
	KineticEnergy float64            `json:"kinetic_energy_mev"`
	Rigidity      float64            `json:"rigidity_tm"`
	BeamLine      string             `json:"beamline"`
	Elements      []string           `json:"elements"`
	Length        float64            `json:"length_m"`
	Particles     int                `json:"particles"`
	Seed          int64              `json:"seed"`
	Workers       int                `json:"workers"`
	Trajectories  string             `json:"trajectories"`
	Lost          int                `json:"lost"`
	LossesByName  map[string]int     `json:"losses_by_element,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
	Error         string             `json:"error,omitempty"`
}

// LossRecord is one row of losses.csv.
type LossRecord struct {
	ParticleID uint64  `csv:"particle_id"`
	Index      int     `csv:"element_index"`
	Element    string  `csv:"element"`
	Reason     string  `csv:"reason"`
	Path       float64 `csv:"path_m"`
	X          float64 `csv:"x"`
	Y          float64 `csv:"y"`
}

// Run is an open run directory receiving trajectories.
type Run struct {
	store  *Store
	dir    string
	meta   RunMetadata
	traj   *beamio.FileWriter
	losses []LossRecord
	done   bool
}

// Create starts a new run with a random id. The trajectory file is zstd
// compressed when compress is set.
func (s *Store) Create(meta RunMetadata, compress bool) (*Run, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Trajectories = trajectoryFile
	if compress {
		meta.Trajectories += ".zst"
	}

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	w, err := beamio.Create(filepath.Join(dir, meta.Trajectories), binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	return &Run{store: s, dir: dir, meta: meta, traj: w}, nil
}

func (r *Run) ID() string  { return r.meta.ID }
func (r *Run) Dir() string { return r.dir }

// Write appends p to the trajectory file and records its loss.
func (r *Run) Write(p *particle.Particle) error {
	if err := r.traj.Write(p); err != nil {
		return err
	}
	if p.Lost() {
		rec := LossRecord{
			ParticleID: p.ID,
			Index:      p.LossIndex(),
			Element:    r.elementName(p.LossIndex()),
			Reason:     p.LossReason().String(),
		}
		if s, ok := p.Final(); ok {
			rec.Path = s.Path
			rec.X = s.State[0]
			rec.Y = s.State[2]
		}
		r.losses = append(r.losses, rec)
	}
	return nil
}

func (r *Run) elementName(i int) string {
	if i >= 0 && i < len(r.meta.Elements) {
		return r.meta.Elements[i]
	}
	return ""
}

// Finish closes the trajectory file and writes losses.csv and
// metadata.json.
func (r *Run) Finish(metrics map[string]float64) (*RunMetadata, error) {
	if r.done {
		return &r.meta, nil
	}
	r.done = true
	err := r.traj.Close()

	r.meta.Particles = r.traj.Count()
	r.meta.Lost = len(r.losses)
	r.meta.Metrics = metrics
	if len(r.losses) > 0 {
		r.meta.LossesByName = make(map[string]int)
		for _, l := range r.losses {
			r.meta.LossesByName[l.Element]++
		}
	}

	err = errors.Join(err, writeLosses(filepath.Join(r.dir, lossesFile), r.losses))
	err = errors.Join(err, writeJSON(filepath.Join(r.dir, metadataFile), r.meta))
	if err != nil {
		return nil, err
	}
	return &r.meta, nil
}

// Abort finishes a run that failed, recording cause in its metadata so the
// directory stays readable.
func (r *Run) Abort(cause error) error {
	if r.done {
		return nil
	}
	if cause != nil {
		r.meta.Error = cause.Error()
	}
	_, err := r.Finish(nil)
	return err
}

func writeLosses(path string, losses []LossRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if losses == nil {
		losses = []LossRecord{}
	}
	return gocsv.MarshalFile(&losses, f)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// Resolve accepts a full run id or a unique prefix of one.
func (s *Store) Resolve(prefix string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, r := range runs {
		if r.ID == prefix {
			return r.ID, nil
		}
		if len(prefix) > 0 && len(r.ID) >= len(prefix) && r.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("run prefix %q is ambiguous", prefix)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("run %q not found", prefix)
	}
	return match, nil
}

// OpenTrajectories opens the trajectory file of a stored run.
func (s *Store) OpenTrajectories(runID string) (*beamio.FileReader, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	return beamio.Open(filepath.Join(s.baseDir, runID, meta.Trajectories))
}

func (s *Store) LoadLosses(runID string) ([]LossRecord, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, lossesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []LossRecord
	if err := gocsv.UnmarshalFile(f, &out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []LossRecord{}, nil
		}
		return nil, err
	}
	return out, nil
}

// SaveEnvelope stores the beam moments of a run next to its trajectories.
func (s *Store) SaveEnvelope(runID string, env []analysis.Moments) error {
	return writeJSON(filepath.Join(s.baseDir, runID, envelopeFile), env)
}

func (s *Store) LoadEnvelope(runID string) ([]analysis.Moments, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, envelopeFile))
	if err != nil {
		return nil, err
	}
	var env []analysis.Moments
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("run %s envelope: %w", runID, err)
	}
	return env, nil
}

// SaveTable keeps the parameter table the run was built from so the line
// can be rebuilt later.
func (r *Run) SaveTable(t beamline.Table) error {
	f, err := os.Create(filepath.Join(r.dir, tableFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return beamline.WriteTable(f, t)
}

func (s *Store) LoadTable(runID string) (beamline.Table, error) {
	return beamline.LoadTableFile(filepath.Join(s.baseDir, runID, tableFile))
}

// BeamLine rebuilds the line of a stored run.
func (s *Store) BeamLine(runID string) (*beamline.BeamLine, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	sp, err := physics.LookupSpecies(meta.Species)
	if err != nil {
		return nil, err
	}
	ref, err := physics.NewReferenceFromKinetic(sp, meta.KineticEnergy)
	if err != nil {
		return nil, err
	}
	t, err := s.LoadTable(runID)
	if err != nil {
		return nil, err
	}
	return beamline.FromTable(ref, t)
}
