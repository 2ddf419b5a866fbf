// cmd/amsctl/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"

	"amsplayer/pkg/config"
	"amsplayer/pkg/logger"
)

func main() {
	var verbose bool
	root := &cobra.Command{
		Use:          "amsctl",
		Short:        "Inspect Azure Media Services assets the way the player block sees them",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log upstream requests")

	env := func() (config.Config, logger.Sugared) {
		cfg := config.Load()
		if verbose {
			return cfg, logger.New(cfg.Env)
		}
		return cfg, logger.Nop()
	}
	root.AddCommand(locatorsCmd(env), videoInfoCmd(env), credentialsCmd(env))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
