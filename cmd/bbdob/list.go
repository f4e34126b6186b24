package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered objectives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := a.registry(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOBJECTIVE\tDIM\tCMAX\tMINIMIZE\tOPTIMUM")
			for _, name := range r.Names() {
				o, _ := r.Get(name)
				optimum := "unknown"
				if v := o.OptimalValue(); !math.IsInf(v, 0) {
					optimum = fmt.Sprintf("%g", v)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n", name, o.Name(), o.Dim(), o.Cmax(), o.Minimize(), optimum)
			}
			return w.Flush()
		},
	}
}
