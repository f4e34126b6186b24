// Package benchmark builds objectives from named presets and keeps the
// instances served by the HTTP server and the CLI.
package benchmark

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/bbdob/internal/objective"
	"github.com/copyleftdev/bbdob/internal/objective/combinatorial"
	"github.com/copyleftdev/bbdob/internal/objective/nasbench"
)

// Kind selects the objective a preset builds.
type Kind string

const (
	KindOneMax    Kind = "onemax"
	KindTwoMin    Kind = "twomin"
	KindFourPeaks Kind = "fourpeaks"
	KindTrap      Kind = "trap"
	KindNK        Kind = "nk"
	KindWModel    Kind = "wmodel"
	KindNasBench  Kind = "nasbench"
)

// Preset is a named objective configuration. Parameters that do not apply
// to the kind are ignored.
type Preset struct {
	Name string `yaml:"name" json:"name"`
	Kind Kind   `yaml:"kind" json:"kind"`
	Dim  int    `yaml:"dim,omitempty" json:"dim,omitempty"`
	// Minimize defaults to true when unset.
	Minimize *bool `yaml:"minimize,omitempty" json:"minimize,omitempty"`

	T      int   `yaml:"t,omitempty" json:"t,omitempty"`
	K      int   `yaml:"k,omitempty" json:"k,omitempty"`
	Mu     int   `yaml:"mu,omitempty" json:"mu,omitempty"`
	Nu     int   `yaml:"nu,omitempty" json:"nu,omitempty"`
	Gamma  int   `yaml:"gamma,omitempty" json:"gamma,omitempty"`
	Seed   int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Epochs int   `yaml:"epochs,omitempty" json:"epochs,omitempty"`
}

// IsMinimize resolves the Minimize default.
func (p Preset) IsMinimize() bool {
	return p.Minimize == nil || *p.Minimize
}

// Deps are the collaborators some kinds need.
type Deps struct {
	// Dataset backs nasbench presets.
	Dataset nasbench.Dataset
	// Clock, when set, is shared by every nasbench objective built.
	Clock  *nasbench.Clock
	Logger *zap.Logger
	// Instrument, when set, wraps every objective Build registers.
	Instrument func(objective.Objective) objective.Objective
}

// New constructs the objective described by p.
func New(p Preset, deps Deps) (objective.Objective, error) {
	minimize := p.IsMinimize()

	var (
		o   objective.Objective
		err error
	)
	switch p.Kind {
	case KindOneMax:
		o, err = combinatorial.NewOneMax(p.Dim, minimize)
	case KindTwoMin:
		o, err = combinatorial.NewTwoMin(p.Dim, minimize, combinatorial.WithSeed(p.Seed))
	case KindFourPeaks:
		o, err = combinatorial.NewFourPeaks(p.Dim, p.T, minimize)
	case KindTrap:
		o, err = combinatorial.NewDeceptiveTrap(p.Dim, p.K, minimize)
	case KindNK:
		o, err = combinatorial.NewNKLandscape(p.Dim, p.K, minimize, p.Seed)
	case KindWModel:
		o, err = combinatorial.NewWModel(p.Dim, minimize, combinatorial.WModelConfig{Mu: p.Mu, Nu: p.Nu, Gamma: p.Gamma})
	case KindNasBench:
		if deps.Dataset == nil {
			return nil, objective.Violation(objective.ErrInvalidParameter, "preset %q needs a nasbench dataset", p.Name).
				WithOperation("New")
		}
		opts := []nasbench.Option{nasbench.WithClock(deps.Clock), nasbench.WithLogger(deps.Logger)}
		if p.Epochs != 0 {
			opts = append(opts, nasbench.WithEpochs(p.Epochs))
		}
		o, err = nasbench.New(deps.Dataset, minimize, opts...)
	default:
		return nil, objective.Violation(objective.ErrInvalidParameter, "unknown kind %q", p.Kind).
			WithOperation("New")
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets decodes a YAML document of the form
//
//	presets:
//	  - name: onemax-10
//	    kind: onemax
//	    dim: 10
func LoadPresets(r io.Reader) ([]Preset, error) {
	var f presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for i, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i)
		}
	}
	return f.Presets, nil
}

// LoadPresetsFile reads presets from a YAML file.
func LoadPresetsFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPresets(f)
}

// DefaultPresets returns the configurations the server registers when no
// presets file is given.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "onemax-5", Kind: KindOneMax, Dim: 5},
		{Name: "onemax-100", Kind: KindOneMax, Dim: 100},
		{Name: "twomin-6", Kind: KindTwoMin, Dim: 6, Seed: 1},
		{Name: "fourpeaks-7", Kind: KindFourPeaks, Dim: 7, T: 2},
		{Name: "fourpeaks-100", Kind: KindFourPeaks, Dim: 100, T: 10},
		{Name: "trap-12", Kind: KindTrap, Dim: 12, K: 4},
		{Name: "nk-12", Kind: KindNK, Dim: 12, K: 2, Seed: 1},
		{Name: "wmodel-30", Kind: KindWModel, Dim: 30, Mu: 1, Nu: 3, Gamma: 10},
		{Name: "nasbench101", Kind: KindNasBench, Epochs: nasbench.DefaultEpochs},
	}
}
