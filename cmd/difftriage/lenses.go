package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/difftriage/internal/lens"
)

func newLensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lenses",
		Short: "List the built-in lenses and profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := lens.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Lenses:")
			for _, id := range ids {
				l, err := lens.Load(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-16s %s\n", id, l.Name)
			}

			names, err := lens.ListProfiles()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nProfiles:")
			for _, name := range names {
				p, err := lens.LoadProfile(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-16s %s\n", name, p.Description)
			}
			return nil
		},
	}
}
