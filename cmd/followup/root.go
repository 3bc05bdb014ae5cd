package main

import (
	"fmt"

	"github.com/lotfimay/FollowUP-GRP4/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "followup",
		Short:        "followup tracks incidents on implanted devices and their follow-ups",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newMigrateCmd(loadConfig),
		newVersionCmd(),
	)
	return root
}
