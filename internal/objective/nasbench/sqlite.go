package nasbench

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS nasbench (
	module_hash         TEXT    NOT NULL,
	epochs              INTEGER NOT NULL,
	validation_accuracy REAL    NOT NULL,
	test_accuracy       REAL    NOT NULL,
	training_time       REAL    NOT NULL,
	PRIMARY KEY (module_hash, epochs)
)`

// SQLiteStore is a dataset backed by a SQLite file, with an in-process cache
// of the rows already read.
type SQLiteStore struct {
	db     *sql.DB
	cache  *cache.Cache
	logger *zap.Logger
}

// StoreOption configures a SQLiteStore.
type StoreOption func(*SQLiteStore)

// WithStoreLogger sets the logger used for import progress.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(ctx context.Context, path string, opts ...StoreOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open nasbench store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open nasbench store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create nasbench schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		cache:  cache.New(cache.NoExpiration, 0),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.cache.Flush()
	return s.db.Close()
}

// Import loads a JSONL dump in a single transaction and returns the number
// of records written. Existing records for the same cell and budget are
// replaced.
func (s *SQLiteStore) Import(ctx context.Context, r io.Reader) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO nasbench
		(module_hash, epochs, validation_accuracy, test_accuracy, training_time)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	err = ReadRecords(r, func(hash string, rec Record) error {
		_, err := stmt.ExecContext(ctx, hash, rec.Epochs,
			rec.ValidationAccuracy, rec.TestAccuracy, rec.TrainingTime)
		if err != nil {
			return err
		}
		n++
		if n%50000 == 0 {
			s.logger.Info("importing nasbench records", zap.Int("records", n))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import nasbench records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.cache.Flush()
	s.logger.Info("imported nasbench records", zap.Int("records", n))
	return n, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nasbench`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Query implements Dataset.
func (s *SQLiteStore) Query(spec *ModelSpec, epochs int) (Metrics, error) {
	if err := CheckSpec(spec); err != nil {
		return Metrics{}, err
	}
	hash := spec.Hash()
	key := hash + "/" + strconv.Itoa(epochs)
	if v, ok := s.cache.Get(key); ok {
		return v.(Metrics), nil
	}

	var m Metrics
	err := s.db.QueryRow(`SELECT validation_accuracy, test_accuracy, training_time
		FROM nasbench WHERE module_hash = ? AND epochs = ?`, hash, epochs).
		Scan(&m.ValidationAccuracy, &m.TestAccuracy, &m.TrainingTime)
	if errors.Is(err, sql.ErrNoRows) {
		return Metrics{}, fmt.Errorf("%w: no record for %s at %d epochs", ErrOutOfDomain, hash, epochs)
	}
	if err != nil {
		return Metrics{}, fmt.Errorf("query nasbench store: %w", err)
	}
	s.cache.Set(key, m, cache.DefaultExpiration)
	return m, nil
}
