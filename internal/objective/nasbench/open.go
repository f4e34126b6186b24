package nasbench

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Open returns the dataset at dbPath, a SQLite store, or else the JSONL
// dump at jsonlPath loaded into memory. Both empty yields a nil dataset.
// The returned close function is never nil.
func Open(ctx context.Context, dbPath, jsonlPath string, logger *zap.Logger) (Dataset, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = zap.NewNop()
	}

	switch {
	case dbPath != "":
		s, err := OpenSQLite(ctx, dbPath, WithStoreLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		n, err := s.Count(ctx)
		if err != nil {
			s.Close()
			return nil, noop, err
		}
		logger.Info("opened nasbench store", zap.String("path", dbPath), zap.Int("records", n))
		return s, s.Close, nil

	case jsonlPath != "":
		f, err := os.Open(jsonlPath)
		if err != nil {
			return nil, noop, fmt.Errorf("open nasbench dump: %w", err)
		}
		defer f.Close()
		t, err := LoadJSONL(f)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("loaded nasbench dump", zap.String("path", jsonlPath), zap.Int("records", t.Len()))
		return t, noop, nil

	default:
		return nil, noop, nil
	}
}
