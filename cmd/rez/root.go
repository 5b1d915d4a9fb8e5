package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bpabel/rez"
)

type app struct {
	lg  *logrus.Logger
	cfg *rez.Config

	configPath   string
	pkgPaths     []string
	cachePath    string
	maxDecisions int
	timeoutSecs  int
	verbose      bool
}

func rootCommand() *cobra.Command {
	a := &app{lg: logrus.New(), cfg: rez.DefaultConfig()}

	root := &cobra.Command{
		Use:           "rez",
		Short:         "rez resolves package requests into consistent environments",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				a.lg.SetLevel(logrus.DebugLevel)
			} else {
				a.lg.SetLevel(logrus.WarnLevel)
			}
			if a.configPath != "" {
				cfg, err := rez.LoadConfig(a.configPath)
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			// Flags override the config file.
			if len(a.pkgPaths) > 0 {
				a.cfg.PackagesPath = a.pkgPaths
			}
			if cmd.Flags().Changed("cache") {
				a.cfg.CachePath = a.cachePath
			}
			if cmd.Flags().Changed("max-decisions") {
				a.cfg.MaxDecisions = a.maxDecisions
			}
			if cmd.Flags().Changed("timeout") {
				a.cfg.TimeoutSeconds = a.timeoutSecs
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a rez config file")
	pf.StringSliceVarP(&a.pkgPaths, "packages-path", "p", nil, "package repository roots, highest priority first")
	pf.StringVar(&a.cachePath, "cache", "", "context cache database path")
	pf.IntVar(&a.maxDecisions, "max-decisions", 0, "abort a resolve after this many solver decisions")
	pf.IntVar(&a.timeoutSecs, "timeout", 0, "abort a resolve after this many seconds")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable solver trace logging")

	root.AddCommand(
		resolveCommand(a),
		contextCommand(a),
		searchCommand(a),
	)
	return root
}

func (a *app) resolver() (*rez.Resolver, error) {
	return rez.NewResolver(a.cfg, a.lg)
}
