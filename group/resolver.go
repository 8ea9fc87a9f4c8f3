package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"weightcast/discovery"
)

var (
	// ErrDiscoveryRequest reports a failed discovery request. Advisory:
	// the state machine remains available for retry.
	ErrDiscoveryRequest = errors.New("group: discovery request failed")
	// ErrConnectRequest reports a failed connect request. Advisory for
	// the same reason; the authoritative role decision always comes from
	// the subsequent connection-changed query.
	ErrConnectRequest = errors.New("group: connect request failed")
)

// Resolver turns discovery events into a definite Owner/Client role. It is
// the only writer of the role and of the session; transports observe both
// read-only through the sessions channel.
type Resolver struct {
	driver discovery.Driver
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	session Session
	peers   []discovery.PeerDevice

	sessions chan Session
}

// NewResolver creates a resolver consuming the given driver.
func NewResolver(driver discovery.Driver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		driver:   driver,
		logger:   logger,
		sessions: make(chan Session, 16),
	}
}

// Sessions emits a Session on every definite role change. A session with
// RoleUndetermined reports the teardown of the previous one.
func (r *Resolver) Sessions() <-chan Session {
	return r.sessions
}

// State returns the current resolver state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns the active session, if any.
func (r *Resolver) Session() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.session.Role != RoleUndetermined
}

// Peers returns the latest peer snapshot.
func (r *Resolver) Peers() []discovery.PeerDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]discovery.PeerDevice, len(r.peers))
	copy(out, r.peers)
	return out
}

// Discover asks the platform to refresh the peer list. The request outcome
// is advisory; peers arrive through peers-changed events.
func (r *Resolver) Discover() error {
	r.mu.Lock()
	prev := r.state
	if prev == StateIdle {
		r.state = StateDiscovering
	}
	r.mu.Unlock()

	if err := r.driver.DiscoverPeers(); err != nil {
		r.mu.Lock()
		if r.state == StateDiscovering {
			r.state = prev
		}
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDiscoveryRequest, err)
	}
	return nil
}

// Connect requests a group with the chosen peer. Fire-and-forget: even a
// successful request decides nothing, the role comes from the
// connection-changed query that follows.
func (r *Resolver) Connect(address string) error {
	r.mu.Lock()
	prev := r.state
	r.state = StateConnecting
	r.mu.Unlock()

	if err := r.driver.Connect(address); err != nil {
		r.mu.Lock()
		if r.state == StateConnecting {
			r.state = prev
		}
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnectRequest, err)
	}
	return nil
}

// Run consumes driver events until the context is cancelled or the driver's
// event channel closes. All role transitions happen on this single loop.
func (r *Resolver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-r.driver.Events():
			if !ok {
				return nil
			}
			r.handle(event)
		}
	}
}

func (r *Resolver) handle(event discovery.Event) {
	switch event.Type {
	case discovery.EventRadioStateChanged:
		if !event.RadioEnabled {
			r.teardown()
		}
	case discovery.EventPeersChanged:
		r.refreshPeers()
	case discovery.EventConnectionChanged:
		r.resolveRole()
	case discovery.EventThisDeviceChanged:
		r.logger.Debug("local device changed", "name", event.Device.Name)
	}
}

func (r *Resolver) refreshPeers() {
	peers, err := r.driver.RequestPeerList()
	if err != nil {
		r.logger.Warn("peer list request failed", "err", err)
		return
	}

	r.mu.Lock()
	r.peers = peers
	if r.state == StateDiscovering && len(peers) > 0 {
		r.state = StatePeersKnown
	}
	r.mu.Unlock()
}

// resolveRole queries the driver for current connection info and honors at
// most one role transition. The queried snapshot decides, never the event
// itself: a teardown that raced this event shows up as groupFormed=false in
// the query and the stale transition is discarded.
func (r *Resolver) resolveRole() {
	info, err := r.driver.RequestConnectionInfo()
	if err != nil {
		r.logger.Warn("connection info request failed", "err", err)
		return
	}

	if !info.GroupFormed {
		r.teardown()
		return
	}

	role := RoleClient
	if info.IsGroupOwner {
		role = RoleOwner
	}

	r.mu.Lock()
	if r.session.Role == role && r.session.OwnerAddress == info.OwnerAddress {
		// Same resolution as the active session; nothing to transition.
		r.mu.Unlock()
		return
	}

	session := Session{
		ID:   uuid.NewString(),
		Role: role,
	}
	if role == RoleClient {
		session.OwnerAddress = info.OwnerAddress
		r.state = StateConnectedAsClient
	} else {
		r.state = StateConnectedAsOwner
	}
	r.session = session
	r.mu.Unlock()

	r.logger.Info("role resolved", "role", role.String(), "session", session.ID,
		"owner_address", session.OwnerAddress)
	r.emit(session)
}

func (r *Resolver) teardown() {
	r.mu.Lock()
	hadSession := r.session.Role != RoleUndetermined
	ended := r.session
	r.session = Session{}
	r.state = StateIdle
	r.mu.Unlock()

	if !hadSession {
		return
	}
	r.logger.Info("group torn down", "session", ended.ID)
	r.emit(Session{Role: RoleUndetermined})
}

func (r *Resolver) emit(session Session) {
	select {
	case r.sessions <- session:
	default:
		r.logger.Warn("dropped session event", "role", session.Role.String())
	}
}
