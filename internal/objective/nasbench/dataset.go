package nasbench

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrOutOfDomain reports a cell the dataset cannot score: an invalid graph,
// one that exceeds the size limits, or one the table has no record of.
var ErrOutOfDomain = errors.New("out of domain")

// Metrics are the tabulated results of training one cell for a budget.
type Metrics struct {
	ValidationAccuracy float64 `json:"validation_accuracy"`
	TestAccuracy       float64 `json:"test_accuracy"`
	// TrainingTime is in seconds.
	TrainingTime float64 `json:"training_time"`
}

// Dataset looks up the tabulated metrics of a cell. Implementations return
// an error wrapping ErrOutOfDomain for cells they cannot score; any other
// error is a storage failure. Query must be safe for concurrent use.
type Dataset interface {
	Query(spec *ModelSpec, epochs int) (Metrics, error)
}

// Record is one line of a JSONL dump. A record is keyed by ModuleHash or,
// when that is empty, by the fingerprint of Matrix and Ops.
type Record struct {
	ModuleHash string   `json:"module_hash,omitempty"`
	Matrix     [][]int  `json:"matrix,omitempty"`
	Ops        []string `json:"ops,omitempty"`
	Epochs     int      `json:"epochs"`
	Metrics
}

// Key returns the record's module fingerprint.
func (r *Record) Key() (string, error) {
	if r.ModuleHash != "" {
		return r.ModuleHash, nil
	}
	if len(r.Matrix) == 0 {
		return "", errors.New("record has neither module_hash nor matrix")
	}
	spec, err := NewModelSpec(MatrixFromRows(r.Matrix), r.Ops)
	if err != nil {
		return "", err
	}
	if err := CheckSpec(spec); err != nil {
		return "", err
	}
	return spec.Hash(), nil
}

// ReadRecords decodes a JSONL stream and calls fn for each record with its
// fingerprint. Blank lines are skipped.
func ReadRecords(r io.Reader, fn func(hash string, rec Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Epochs <= 0 {
			return fmt.Errorf("line %d: epochs must be positive, got %d", line, rec.Epochs)
		}
		hash, err := rec.Key()
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(hash, rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

type tableKey struct {
	hash   string
	epochs int
}

// Table is an in-memory dataset.
type Table struct {
	mu      sync.RWMutex
	records map[tableKey]Metrics
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{records: make(map[tableKey]Metrics)}
}

// LoadJSONL reads a JSONL dump into a new table.
func LoadJSONL(r io.Reader) (*Table, error) {
	t := NewTable()
	err := ReadRecords(r, func(hash string, rec Record) error {
		t.Add(hash, rec.Epochs, rec.Metrics)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load nasbench table: %w", err)
	}
	return t, nil
}

// Add stores the metrics of the cell with the given fingerprint, replacing
// any previous record for the same budget.
func (t *Table) Add(hash string, epochs int, m Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[tableKey{hash, epochs}] = m
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Query implements Dataset.
func (t *Table) Query(spec *ModelSpec, epochs int) (Metrics, error) {
	if err := CheckSpec(spec); err != nil {
		return Metrics{}, err
	}
	hash := spec.Hash()

	t.mu.RLock()
	m, ok := t.records[tableKey{hash, epochs}]
	t.mu.RUnlock()
	if !ok {
		return Metrics{}, fmt.Errorf("%w: no record for %s at %d epochs", ErrOutOfDomain, hash, epochs)
	}
	return m, nil
}
