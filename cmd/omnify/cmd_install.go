package main

import (
	"github.com/spf13/cobra"

	"omnify/internal/config"
)

var (
	installFresh    bool
	installDetailed bool
)

// installCmd drives the legacy bundle layout, where filelist.json sits at
// the bundle root and destinations mirror the bundle paths. Older projects
// still receive bundles in this shape.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Generate and install using the legacy bundle layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}
		return runBuild(cmd.Context(), cfg, buildOptions{
			fresh:    installFresh,
			detailed: installDetailed,
			legacy:   true,
		})
	},
}

func init() {
	installCmd.Flags().BoolVar(&installFresh, "fresh", false, "request a from-scratch bundle")
	installCmd.Flags().BoolVar(&installDetailed, "detailed", false, "list every file with its outcome")
}
