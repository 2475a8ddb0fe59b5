package main

import (
	"github.com/spf13/cobra"

	"github.com/abdirisakgelle/taskplus/internal/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskplus",
		Short:         "TaskPlus support ticketing and access control service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Directory searched for taskplus.yaml; TASKPLUS_* variables override it.
	root.PersistentFlags().String("config-dir", ".", "directory containing taskplus.yaml")

	root.AddCommand(newServeCommand())
	root.AddCommand(newLambdaCommand())
	root.AddCommand(newSeedCommand())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir, err := cmd.Root().PersistentFlags().GetString("config-dir")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(dir)
}
