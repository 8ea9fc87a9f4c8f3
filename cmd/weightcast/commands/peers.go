package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"weightcast/discovery"
)

func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "Scan once and list discovered peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := discovery.NewMDNS(discovery.MDNSConfig{
				SelfDeviceID: cfg.DeviceID,
				DeviceName:   cfg.DeviceName,
				ServePort:    cfg.ServePort,
				Logger:       logger,
			})
			if err != nil {
				return err
			}
			if err := driver.Start(); err != nil {
				return err
			}
			defer driver.Stop()

			spinner, _ := pterm.DefaultSpinner.Start("Scanning ...")
			if err := driver.DiscoverPeers(); err != nil {
				spinner.Fail()
				return err
			}
			spinner.Success()

			peers, err := driver.RequestPeerList()
			if err != nil {
				return err
			}
			renderPeers(peers)
			return nil
		},
	}
}
