package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"weightcast/transport"
	"weightcast/weights"
)

func serveCmd() *cobra.Command {
	var port int
	var count int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the owner transport standalone",
		RunE: func(cmd *cobra.Command, args []string) error {
			vector := weights.Derive(weights.GeneratePrimes(count))

			server, err := transport.Listen(transport.ServerConfig{
				Address: fmt.Sprintf(":%d", port),
				Vector:  vector,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pterm.Info.Printfln("Serving %s on %s (press Ctrl+C to stop)",
				string(transport.Encode(vector)), server.Addr().String())

			if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", transport.DefaultPort, "TCP port to listen on")
	cmd.Flags().IntVar(&count, "primes", weights.DefaultCount, "number of primes to derive weights from")
	return cmd
}
