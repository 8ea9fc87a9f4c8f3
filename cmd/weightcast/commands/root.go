package commands

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"weightcast/config"
)

var (
	dataDir string
	verbose bool

	cfg     *config.DeviceConfig
	cfgPath string
	logger  *slog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:   "weightcast",
		Short: "LAN peer-to-peer weight vector exchange",
		Long: "Weightcast discovers nearby devices over mDNS, elects a group owner\n" +
			"and pushes a deterministically computed weight vector from the owner\n" +
			"to every connecting peer.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dataDir != "" {
				if err := os.Setenv("WEIGHTCAST_DATA_DIR", dataDir); err != nil {
					return err
				}
			}

			handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
			if verbose {
				pterm.DefaultLogger.Level = pterm.LogLevelDebug
			}
			logger = slog.New(handler)
			slog.SetDefault(logger)

			var err error
			cfg, cfgPath, err = config.LoadOrCreate()
			return err
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "config dir (default OS app data dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(runCmd(), serveCmd(), fetchCmd(), peersCmd())
	return root.Execute()
}
