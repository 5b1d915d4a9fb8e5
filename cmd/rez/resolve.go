package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bpabel/rez"
)

func resolveCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "resolve REQUIREMENT...",
		Short: "Resolve a set of package requirements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			defer r.Close()

			c, err := r.Resolve(cmd.Context(), args)
			if err != nil {
				return err
			}
			if out != "" {
				data, serr := c.Serialize()
				if serr != nil {
					return serr
				}
				if werr := os.WriteFile(out, data, 0o644); werr != nil {
					return errors.Wrapf(werr, "writing context to %s", out)
				}
			}
			printContext(cmd, c)
			if !c.Succeeded() {
				return errors.Errorf("resolve %s", c.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the serialized context to a file")
	return cmd
}

func printContext(cmd *cobra.Command, c *rez.Context) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status: %s\n", c.Status)
	if c.Failure != "" {
		fmt.Fprintln(w, c.Failure)
		return
	}
	fmt.Fprintf(w, "resolved at: %s\n", c.Timestamp.Format("2006-01-02 15:04:05"))
	for _, p := range c.Packages {
		fmt.Fprintf(w, "  %s-%s[%d]\n", p.Name, p.Version, p.Index)
	}
}
