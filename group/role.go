package group

// Role is the device's position in a formed peer-to-peer group. Exactly one
// value holds at any time and only the resolver assigns it.
type Role int

const (
	// RoleUndetermined means no group is formed.
	RoleUndetermined Role = iota
	// RoleOwner is the serving endpoint of the group; it listens for
	// connections and pushes the weight vector.
	RoleOwner
	// RoleClient joined a group without becoming owner; it connects to
	// the owner and receives the weight vector.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleClient:
		return "client"
	default:
		return "undetermined"
	}
}

// State tracks resolver progress from idle discovery to a connected role.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StatePeersKnown
	StateConnecting
	StateConnectedAsOwner
	StateConnectedAsClient
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StatePeersKnown:
		return "peers_known"
	case StateConnecting:
		return "connecting"
	case StateConnectedAsOwner:
		return "connected_as_owner"
	case StateConnectedAsClient:
		return "connected_as_client"
	default:
		return "idle"
	}
}

// Session describes one group membership with a definite role. It is created
// by the resolver when a role resolves and destroyed on group teardown; the
// active transport is bound to its lifetime. OwnerAddress is set only for
// client sessions.
type Session struct {
	ID           string
	Role         Role
	OwnerAddress string
}
