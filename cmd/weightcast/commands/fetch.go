package commands

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"weightcast/transport"
)

func fetchCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "fetch <owner-address>",
		Short: "Fetch the weight vector from an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !strings.Contains(address, ":") {
				address = net.JoinHostPort(address, fmt.Sprintf("%d", transport.DefaultPort))
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			spinner, _ := pterm.DefaultSpinner.Start("Fetching weights from " + address + " ...")
			vector, err := transport.Fetch(ctx, address)
			if err != nil {
				spinner.Fail()
				return err
			}
			spinner.Success()

			renderWeights(vector)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall fetch timeout")
	return cmd
}
