package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/bbdob/internal/benchmark"
	"github.com/copyleftdev/bbdob/internal/config"
	"github.com/copyleftdev/bbdob/internal/logging"
	"github.com/copyleftdev/bbdob/internal/objective/nasbench"
)

// app is the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	presetsFile string
	dbPath      string
	jsonlPath   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bbdob",
		Short:         "Black-box discrete optimization benchmarks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.NewLogger(config.Logging{
				Level:  cfg.Logging.Level,
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			a.logger = logger

			if a.presetsFile == "" {
				a.presetsFile = cfg.Benchmark.PresetsFile
			}
			if a.dbPath == "" {
				a.dbPath = cfg.NasBench.DB
			}
			if a.jsonlPath == "" {
				a.jsonlPath = cfg.NasBench.JSONL
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.presetsFile, "presets", "", "YAML preset file (default: built-in presets, or $BBDOB_PRESETS_FILE)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "NAS-Bench-101 SQLite store (default $NASBENCH_DB)")
	root.PersistentFlags().StringVar(&a.jsonlPath, "jsonl", "", "NAS-Bench-101 JSONL dump, used when no store is given (default $NASBENCH_JSONL)")

	root.AddCommand(newListCmd(a), newEvalCmd(a), newNasBenchCmd(a))
	return root
}

func (a *app) zap() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger.Zap()
}

func (a *app) presets() ([]benchmark.Preset, error) {
	presets := benchmark.DefaultPresets()
	if a.presetsFile != "" {
		var err error
		presets, err = benchmark.LoadPresetsFile(a.presetsFile)
		if err != nil {
			return nil, err
		}
	}
	for i := range presets {
		if presets[i].Kind == benchmark.KindNasBench && presets[i].Epochs == 0 {
			presets[i].Epochs = a.cfg.NasBench.Epochs
		}
	}
	return presets, nil
}

// registry builds every preset. The returned close function releases the
// NAS-Bench-101 dataset.
func (a *app) registry(cmd *cobra.Command) (*benchmark.Registry, func() error, error) {
	presets, err := a.presets()
	if err != nil {
		return nil, nil, err
	}
	dataset, closeFn, err := nasbench.Open(cmd.Context(), a.dbPath, a.jsonlPath, a.zap())
	if err != nil {
		return nil, nil, err
	}
	r, err := benchmark.Build(presets, benchmark.Deps{Dataset: dataset, Logger: a.zap()})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return r, closeFn, nil
}
