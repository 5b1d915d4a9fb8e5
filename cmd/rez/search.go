package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bpabel/rez/repo"
)

func searchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search [PREFIX]",
		Short: "List package families across the repository stack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			seen := map[string]bool{}
			for _, p := range a.cfg.PackagesPath {
				r, err := repo.NewFSRepository(p, a.lg)
				if err != nil {
					return err
				}
				for _, name := range r.Search(prefix) {
					seen[name] = true
				}
				r.Close()
			}
			names := make([]string, 0, len(seen))
			for n := range seen {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
