// Package classifier trains and serves the description classifier: TF-IDF
// term weights fed to a multinomial Naive Bayes model.
package classifier

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/jbrukh/bayesian"

	"expensetracker/internal/core"
)

var (
	ErrEmptyCorpus  = errors.New("training corpus is empty")
	ErrTooFewLabels = errors.New("training needs at least two distinct categories")
)

// TrainOptions controls the train/test partition.
type TrainOptions struct {
	TestSize float64
	Seed     uint64
}

// DefaultTrainOptions holds out 20% with seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{TestSize: 0.2, Seed: 42}
}

// Model is a trained classifier. It is safe for concurrent Predict calls
// once trained or loaded.
type Model struct {
	nb *bayesian.Classifier
}

// Train fits a model on a seeded split of samples and evaluates it on the
// held-out part.
func Train(samples []Sample, opts TrainOptions) (*Model, *Report, error) {
	if len(samples) == 0 {
		return nil, nil, ErrEmptyCorpus
	}
	if opts.TestSize < 0 || opts.TestSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v: must be in [0, 1)", opts.TestSize)
	}
	if len(distinctLabels(samples)) < 2 {
		return nil, nil, ErrTooFewLabels
	}

	train, test := Split(samples, opts.TestSize, opts.Seed)
	labels := distinctLabels(train)
	if len(labels) < 2 {
		return nil, nil, fmt.Errorf("%w (training split has %d)", ErrTooFewLabels, len(labels))
	}

	m := Fit(train)
	return m, Evaluate(m, test), nil
}

// Fit trains on every sample without holding any out. The caller must
// supply at least two distinct labels.
func Fit(samples []Sample) *Model {
	labels := distinctLabels(samples)
	classes := make([]bayesian.Class, len(labels))
	for i, l := range labels {
		classes[i] = bayesian.Class(l)
	}

	nb := bayesian.NewClassifierTfIdf(classes...)
	for _, s := range samples {
		nb.Learn(Tokenize(core.NormalizeDescription(s.Description)), bayesian.Class(s.Category))
	}
	nb.ConvertTermsFreqToTfIdf()
	return &Model{nb: nb}
}

// Predict returns the most likely category for description. Every input,
// including one with no known terms, gets a label.
func (m *Model) Predict(description string) string {
	terms := Tokenize(core.NormalizeDescription(description))
	scores, best, _ := m.nb.LogScores(terms)

	// All -Inf or NaN scores leave best at 0; pick the first finite maximum.
	if math.IsInf(scores[best], -1) || math.IsNaN(scores[best]) {
		top := math.Inf(-1)
		for i, s := range scores {
			if s > top {
				top, best = s, i
			}
		}
	}
	return string(m.nb.Classes[best])
}

// Labels returns the categories the model can predict, sorted.
func (m *Model) Labels() []string {
	out := make([]string, len(m.nb.Classes))
	for i, c := range m.nb.Classes {
		out[i] = string(c)
	}
	sort.Strings(out)
	return out
}

// Save writes the model artifact to w.
func (m *Model) Save(w io.Writer) error {
	if err := m.nb.WriteTo(w); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// SaveFile writes the artifact to path, creating parent directories. The
// file is replaced atomically.
func (m *Model) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// CreateTemp uses 0600; the artifact is read by other processes.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp model file: %w", err)
	}
	if err := m.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install model: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(r io.Reader) (*Model, error) {
	nb, err := bayesian.NewClassifierFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(nb.Classes) < 2 {
		return nil, fmt.Errorf("decode model: %w", ErrTooFewLabels)
	}
	return &Model{nb: nb}, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func distinctLabels(samples []Sample) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range samples {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	sort.Strings(out)
	return out
}
