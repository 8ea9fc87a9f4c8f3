package discovery

// EventType identifies asynchronous notifications from the peer-to-peer
// subsystem.
type EventType string

const (
	// EventRadioStateChanged reports the radio being enabled or disabled.
	EventRadioStateChanged EventType = "radio_state_changed"
	// EventPeersChanged reports that the discovered peer list changed.
	// Consumers re-query RequestPeerList for the current snapshot.
	EventPeersChanged EventType = "peers_changed"
	// EventConnectionChanged reports that group state may have changed.
	// Consumers re-query RequestConnectionInfo; the event itself carries
	// no decision.
	EventConnectionChanged EventType = "connection_changed"
	// EventThisDeviceChanged reports local device detail updates.
	EventThisDeviceChanged EventType = "this_device_changed"
)

// Event is one asynchronous notification.
type Event struct {
	Type EventType
	// RadioEnabled is set for EventRadioStateChanged.
	RadioEnabled bool
	// Device is set for EventThisDeviceChanged.
	Device PeerDevice
}

// PeerDevice is a discovered remote endpoint. Identity is the network
// address; entries are rebuilt on every discovery refresh and never
// persisted.
type PeerDevice struct {
	Address string
	Name    string
}

// ConnectionInfo is the authoritative group state as reported by the
// peer-to-peer subsystem. OwnerAddress is only meaningful when a group is
// formed and the local device is not the owner.
type ConnectionInfo struct {
	GroupFormed  bool
	IsGroupOwner bool
	OwnerAddress string
}

// Driver is the platform peer-to-peer subsystem the role resolver consumes:
// four asynchronous notifications through Events plus request/response
// calls. Request errors are advisory; role decisions always come from a
// RequestConnectionInfo query after a connection-changed event.
type Driver interface {
	// Events delivers asynchronous notifications. The channel is closed
	// when the driver stops.
	Events() <-chan Event
	// DiscoverPeers asks the subsystem to refresh the peer list.
	DiscoverPeers() error
	// Connect requests a group with the peer at address. Fire-and-forget:
	// the outcome arrives as a connection-changed event.
	Connect(address string) error
	// RequestConnectionInfo returns the current group state.
	RequestConnectionInfo() (ConnectionInfo, error)
	// RequestPeerList returns the current ordered peer snapshot.
	RequestPeerList() ([]PeerDevice, error)
}
