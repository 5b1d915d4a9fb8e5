package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bpabel/rez"
)

func contextCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context FILE",
		Short: "Print a previously serialized resolved context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading context %s", args[0])
			}
			c, err := rez.Deserialize(data)
			if err != nil {
				return err
			}
			printContext(cmd, c)
			return nil
		},
	}
}
