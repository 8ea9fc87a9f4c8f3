package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"weightcast/transport"
	"weightcast/weights"
)

// CoordinatorConfig controls which transport a session starts.
type CoordinatorConfig struct {
	// ServeAddress is the owner transport listen address, ":8988" when
	// empty.
	ServeAddress string
	// Vector is the payload owners push. Defaults to the reference
	// payload.
	Vector weights.Vector
	// Logger receives transport fault reports. Defaults to slog.Default.
	Logger *slog.Logger
	// OnWeights is invoked with the vector a client fetch produced.
	OnWeights func(Session, weights.Vector)
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	out := c
	if out.ServeAddress == "" {
		out.ServeAddress = fmt.Sprintf(":%d", transport.DefaultPort)
	}
	if out.Vector == nil {
		out.Vector = weights.Default()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Coordinator binds transports to session lifetimes: at most one transport
// task runs per session, the owner server while the role is Owner, a single
// client fetch while it is Client. Teardown cancels whichever is running by
// closing its socket. Transport faults end only the transport, never the
// resolver.
type Coordinator struct {
	resolver *Resolver
	cfg      CoordinatorConfig
}

// NewCoordinator creates a coordinator for the resolver's sessions.
func NewCoordinator(resolver *Resolver, config CoordinatorConfig) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		cfg:      config.withDefaults(),
	}
}

// Run reacts to session changes until the context is cancelled or the
// resolver's session channel closes.
func (c *Coordinator) Run(ctx context.Context) error {
	var cancel context.CancelFunc
	var done chan struct{}

	stopCurrent := func() {
		if cancel == nil {
			return
		}
		cancel()
		<-done
		cancel = nil
		done = nil
	}
	defer stopCurrent()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case session, ok := <-c.resolver.Sessions():
			if !ok {
				return nil
			}

			stopCurrent()

			switch session.Role {
			case RoleOwner:
				transportCtx, transportCancel := context.WithCancel(ctx)
				cancel = transportCancel
				done = make(chan struct{})
				go c.runOwner(transportCtx, done, session)
			case RoleClient:
				transportCtx, transportCancel := context.WithCancel(ctx)
				cancel = transportCancel
				done = make(chan struct{})
				go c.runClient(transportCtx, done, session)
			case RoleUndetermined:
				// Teardown already handled by stopCurrent.
			}
		}
	}
}

func (c *Coordinator) runOwner(ctx context.Context, done chan struct{}, session Session) {
	defer close(done)

	server, err := transport.Listen(transport.ServerConfig{
		Address: c.cfg.ServeAddress,
		Vector:  c.cfg.Vector,
		Logger:  c.cfg.Logger,
	})
	if err != nil {
		// Bind failure is fatal to this transport instance only.
		c.cfg.Logger.Error("owner transport failed", "session", session.ID, "err", err)
		return
	}

	c.cfg.Logger.Info("owner transport serving", "session", session.ID,
		"address", server.Addr().String())
	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.cfg.Logger.Warn("owner transport stopped", "session", session.ID, "err", err)
	}
}

func (c *Coordinator) runClient(ctx context.Context, done chan struct{}, session Session) {
	defer close(done)

	vector, err := transport.Fetch(ctx, session.OwnerAddress)
	if err != nil {
		// Fatal to this fetch only; retry belongs to the caller.
		c.cfg.Logger.Warn("client fetch failed", "session", session.ID,
			"owner_address", session.OwnerAddress, "err", err)
		return
	}

	c.cfg.Logger.Info("received weights", "session", session.ID, "count", len(vector))
	if c.cfg.OnWeights != nil {
		c.cfg.OnWeights(session, vector)
	}
}
