package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"weightcast/discovery"
	"weightcast/group"
	"weightcast/weights"
)

func runCmd() *cobra.Command {
	var connectTo string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full node: discover peers, resolve a role, exchange weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(connectTo)
		},
	}

	cmd.Flags().StringVar(&connectTo, "connect", "", "peer name or address to form a group with")
	return cmd
}

func runNode(connectTo string) error {
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

	resolver := group.NewResolver(driver, logger)
	coordinator := group.NewCoordinator(resolver, group.CoordinatorConfig{
		ServeAddress: fmt.Sprintf(":%d", cfg.ServePort),
		Logger:       logger,
		OnWeights: func(session group.Session, vector weights.Vector) {
			renderWeights(vector)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		_ = resolver.Run(ctx)
	}()
	go func() {
		_ = coordinator.Run(ctx)
	}()

	pterm.Info.Printfln("Device %s (%s), serving port %d", cfg.DeviceName, cfg.DeviceID, cfg.ServePort)

	spinner, _ := pterm.DefaultSpinner.Start("Discovering peers ...")
	if err := resolver.Discover(); err != nil {
		spinner.Fail()
		logger.Warn("discovery request failed", "err", err)
	} else {
		spinner.Success()
	}

	peers, err := driver.RequestPeerList()
	if err != nil {
		return err
	}
	renderPeers(peers)

	if connectTo != "" {
		address, err := matchPeer(peers, connectTo)
		if err != nil {
			return err
		}
		if err := resolver.Connect(address); err != nil {
			// Advisory only; the node stays up for retry.
			logger.Warn("connect request failed", "err", err)
		} else {
			pterm.Info.Printfln("Connecting to %s", address)
		}
	}

	pterm.Info.Println("Running (press Ctrl+C to stop)")
	<-ctx.Done()
	pterm.Info.Println("Shutting down")
	return nil
}

func matchPeer(peers []discovery.PeerDevice, query string) (string, error) {
	for _, peer := range peers {
		if peer.Address == query || strings.EqualFold(peer.Name, query) {
			return peer.Address, nil
		}
	}
	return "", fmt.Errorf("no discovered peer matches %q", query)
}

func renderPeers(peers []discovery.PeerDevice) {
	if len(peers) == 0 {
		pterm.Warning.Println("No peers discovered yet")
		return
	}

	rows := pterm.TableData{{"Name", "Address"}}
	for _, peer := range peers {
		rows = append(rows, []string{peer.Name, peer.Address})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderWeights(vector weights.Vector) {
	rows := pterm.TableData{{"Index", "Weight"}}
	for i, w := range vector {
		rows = append(rows, []string{fmt.Sprintf("%d", i), fmt.Sprintf("%g", w)})
	}
	pterm.Success.Printfln("Received %d weights", len(vector))
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
