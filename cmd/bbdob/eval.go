package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/bbdob/internal/encoding"
	"github.com/copyleftdev/bbdob/internal/objective"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		name    string
		indices []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate candidates given as comma separated category indices",
		Example: `  bbdob eval --objective onemax-5 --indices 0,1,1,0,1
  bbdob eval --objective trap-12 --indices 1,1,1,1,0,0,0,0,1,1,1,1 --indices 0,0,0,0,0,0,0,0,0,0,0,0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := parseIndices(indices)
			if err != nil {
				return err
			}

			r, closeFn, err := a.registry(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			o, ok := r.Get(name)
			if !ok {
				return fmt.Errorf("unknown objective %q, see `bbdob list`", name)
			}
			c, err := encoding.OneHotPopulation(x, o.Cmax())
			if err != nil {
				return objective.Violation(objective.ErrCardinality, "%v", err).WithComponent(o.Name())
			}
			res, err := objective.EvaluateParallel(cmd.Context(), o, c, a.cfg.Benchmark.Workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			keys := make([]string, 0, len(res.Info))
			for k := range res.Info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for i, f := range res.Fitness {
				fmt.Fprintf(out, "%d\tfitness=%g", i, f)
				for _, k := range keys {
					fmt.Fprintf(out, "\t%s=%g", k, res.Info[k][i])
				}
				if f == o.OptimalValue() {
					fmt.Fprint(out, "\toptimum")
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "objective", "o", "", "registered objective name")
	cmd.Flags().StringArrayVarP(&indices, "indices", "x", nil, "candidate as comma separated indices; repeat for a population")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagRequired("objective")
	cmd.MarkFlagRequired("indices")
	return cmd
}

func parseIndices(rows []string) ([][]int, error) {
	x := make([][]int, len(rows))
	for n, row := range rows {
		fields := strings.Split(row, ",")
		x[n] = make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("candidate %d position %d: %w", n, i, err)
			}
			x[n][i] = v
		}
	}
	return x, nil
}
