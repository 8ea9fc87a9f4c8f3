package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultService is the mDNS service name without domain suffix.
	DefaultService = "_weightcast._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultRefreshInterval is the background peer scan interval.
	DefaultRefreshInterval = 10 * time.Second
	// DefaultScanTimeout bounds each browse operation.
	DefaultScanTimeout = 3 * time.Second
)

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// MDNSConfig controls the zeroconf-backed driver.
type MDNSConfig struct {
	Service         string
	Domain          string
	RefreshInterval time.Duration
	ScanTimeout     time.Duration

	SelfDeviceID string
	DeviceName   string
	// ServePort is the owner transport port advertised to peers.
	ServePort int

	Logger *slog.Logger

	registerFn registerFunc
	browseFn   browseFunc
}

func (c MDNSConfig) withDefaults() MDNSConfig {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.RefreshInterval <= 0 {
		out.RefreshInterval = DefaultRefreshInterval
	}
	if out.ScanTimeout <= 0 {
		out.ScanTimeout = DefaultScanTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.registerFn == nil {
		out.registerFn = zeroconf.Register
	}
	return out
}

func (c MDNSConfig) validate() error {
	if strings.TrimSpace(c.SelfDeviceID) == "" {
		return errors.New("self device ID is required")
	}
	if strings.TrimSpace(c.DeviceName) == "" {
		return errors.New("device name is required")
	}
	if c.ServePort <= 0 {
		return errors.New("serve port must be > 0")
	}
	return nil
}

// scannedPeer is one remote service record after TXT parsing.
type scannedPeer struct {
	DeviceID string
	Name     string
	Address  string
	// OwnerID and PairedWith mirror the peer's group TXT records: the
	// device ID of its group owner and of the device it paired with.
	OwnerID    string
	PairedWith string
}

type groupState struct {
	Formed       bool
	OwnerID      string
	PartnerID    string
	OwnerAddress string
}

type refreshRequest struct {
	done chan error
}

// MDNSDriver implements Driver over LAN mDNS. Devices advertise their
// identity and serving port; group formation is emulated by publishing the
// elected owner in TXT records, where the lexicographically smaller device
// ID of a connecting pair becomes owner.
type MDNSDriver struct {
	cfg    MDNSConfig
	browse browseFunc

	server *zeroconf.Server

	mu    sync.Mutex
	peers map[string]scannedPeer
	group groupState

	events          chan Event
	refreshRequests chan refreshRequest

	startOnce sync.Once
	stopOnce  sync.Once
	startErr  error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMDNS creates an mDNS driver with config defaults applied.
func NewMDNS(config MDNSConfig) (*MDNSDriver, error) {
	cfg := config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		browse = resolver.Browse
	}

	return &MDNSDriver{
		cfg:             cfg,
		browse:          browse,
		peers:           make(map[string]scannedPeer),
		events:          make(chan Event, 128),
		refreshRequests: make(chan refreshRequest),
	}, nil
}

// Start registers the mDNS service and begins background scanning. The
// radio-enabled and local-device events are emitted once running.
func (d *MDNSDriver) Start() error {
	d.startOnce.Do(func() {
		server, err := d.cfg.registerFn(d.cfg.DeviceName, d.cfg.Service, d.cfg.Domain,
			d.cfg.ServePort, d.txtRecords(), nil)
		if err != nil {
			d.startErr = fmt.Errorf("register mDNS service: %w", err)
			return
		}
		d.server = server

		d.ctx, d.cancel = context.WithCancel(context.Background())
		d.wg.Add(1)
		go d.loop()

		d.emit(Event{Type: EventRadioStateChanged, RadioEnabled: true})
		d.emit(Event{Type: EventThisDeviceChanged, Device: PeerDevice{
			Address: fmt.Sprintf(":%d", d.cfg.ServePort),
			Name:    d.cfg.DeviceName,
		}})
	})
	return d.startErr
}

// Stop tears down broadcasting and scanning. A radio-disabled event is
// emitted before the event channel closes.
func (d *MDNSDriver) Stop() {
	d.stopOnce.Do(func() {
		d.emit(Event{Type: EventRadioStateChanged, RadioEnabled: false})
		if d.cancel != nil {
			d.cancel()
			d.wg.Wait()
		}
		if d.server != nil {
			d.server.Shutdown()
		}
		close(d.events)
	})
}

// Events delivers asynchronous driver notifications.
func (d *MDNSDriver) Events() <-chan Event {
	return d.events
}

// DiscoverPeers triggers an immediate scan and waits for it to finish.
func (d *MDNSDriver) DiscoverPeers() error {
	if d.ctx == nil {
		return errors.New("mdns driver is not started")
	}

	req := refreshRequest{done: make(chan error, 1)}
	select {
	case d.refreshRequests <- req:
	case <-d.ctx.Done():
		return errors.New("mdns driver is stopped")
	}

	select {
	case err := <-req.done:
		return err
	case <-d.ctx.Done():
		return errors.New("mdns driver is stopped")
	}
}

// Connect requests a group with the peer at address. The owner is elected
// deterministically: the smaller device ID of the pair. The request itself
// is fire-and-forget; the resulting role is observed through the
// connection-changed event and RequestConnectionInfo.
func (d *MDNSDriver) Connect(address string) error {
	d.mu.Lock()

	var target scannedPeer
	found := false
	for _, peer := range d.peers {
		if peer.Address == address {
			target = peer
			found = true
			break
		}
	}
	if !found {
		d.mu.Unlock()
		return fmt.Errorf("no discovered peer at %q", address)
	}
	if d.group.Formed {
		d.mu.Unlock()
		return errors.New("already in a group")
	}

	ownerID := d.cfg.SelfDeviceID
	ownerAddress := ""
	if target.DeviceID < ownerID {
		ownerID = target.DeviceID
		ownerAddress = target.Address
	}
	d.group = groupState{
		Formed:       true,
		OwnerID:      ownerID,
		PartnerID:    target.DeviceID,
		OwnerAddress: ownerAddress,
	}
	txt := d.txtRecords()
	d.mu.Unlock()

	d.setText(txt)
	d.emit(Event{Type: EventConnectionChanged})
	return nil
}

// Disconnect leaves the current group, if any.
func (d *MDNSDriver) Disconnect() error {
	d.mu.Lock()
	if !d.group.Formed {
		d.mu.Unlock()
		return nil
	}
	d.group = groupState{}
	txt := d.txtRecords()
	d.mu.Unlock()

	d.setText(txt)
	d.emit(Event{Type: EventConnectionChanged})
	return nil
}

// RequestConnectionInfo returns the current group state.
func (d *MDNSDriver) RequestConnectionInfo() (ConnectionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.group.Formed {
		return ConnectionInfo{}, nil
	}
	return ConnectionInfo{
		GroupFormed:  true,
		IsGroupOwner: d.group.OwnerID == d.cfg.SelfDeviceID,
		OwnerAddress: d.group.OwnerAddress,
	}, nil
}

// RequestPeerList returns the current peer snapshot ordered by name.
func (d *MDNSDriver) RequestPeerList() ([]PeerDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]PeerDevice, 0, len(d.peers))
	for _, peer := range d.peers {
		out = append(out, PeerDevice{Address: peer.Address, Name: peer.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (d *MDNSDriver) loop() {
	defer d.wg.Done()

	// Prime the peer list immediately.
	d.runScan()

	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.runScan()
		case req := <-d.refreshRequests:
			req.done <- d.runScan()
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *MDNSDriver) runScan() error {
	scanCtx, cancel := context.WithTimeout(d.ctx, d.cfg.ScanTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	collected := make(map[string]scannedPeer)
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				return
			case entry := <-entries:
				if entry == nil {
					continue
				}
				peer, ok := parseEntry(entry, d.cfg.SelfDeviceID)
				if !ok {
					continue
				}
				collected[peer.DeviceID] = peer
			}
		}
	}()

	if err := d.browse(scanCtx, d.cfg.Service, d.cfg.Domain, entries); err != nil &&
		!errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}

	<-scanCtx.Done()
	<-collectorDone

	d.applySnapshot(collected)
	return nil
}

func (d *MDNSDriver) applySnapshot(next map[string]scannedPeer) {
	d.mu.Lock()

	previous := d.peers
	d.peers = next

	peersChanged := len(previous) != len(next)
	if !peersChanged {
		for id, peer := range next {
			old, exists := previous[id]
			if !exists || old.Address != peer.Address || old.Name != peer.Name {
				peersChanged = true
				break
			}
		}
	}

	connectionChanged, txt := d.reconcileGroupLocked()

	d.mu.Unlock()

	if peersChanged {
		d.emit(Event{Type: EventPeersChanged})
	}
	if connectionChanged {
		d.setText(txt)
		d.emit(Event{Type: EventConnectionChanged})
	}
}

// reconcileGroupLocked infers group membership from the latest snapshot.
// A peer advertising a pairing with this device forms a group; a vanished
// or unpaired partner tears it down. Owners stay up until Disconnect so a
// serving device is not torn down by a transient scan miss.
func (d *MDNSDriver) reconcileGroupLocked() (changed bool, txt []string) {
	self := d.cfg.SelfDeviceID

	if !d.group.Formed {
		for _, peer := range d.peers {
			if peer.PairedWith != self || peer.OwnerID == "" {
				continue
			}
			ownerAddress := ""
			if peer.OwnerID != self {
				ownerAddress = peer.Address
			}
			d.group = groupState{
				Formed:       true,
				OwnerID:      peer.OwnerID,
				PartnerID:    peer.DeviceID,
				OwnerAddress: ownerAddress,
			}
			return true, d.txtRecords()
		}
		return false, nil
	}

	if d.group.OwnerID == self {
		return false, nil
	}

	partner, present := d.peers[d.group.PartnerID]
	if present && partner.OwnerID == d.group.OwnerID {
		return false, nil
	}
	d.group = groupState{}
	return true, d.txtRecords()
}

func (d *MDNSDriver) txtRecords() []string {
	txt := []string{
		"device_id=" + d.cfg.SelfDeviceID,
		"version=1",
	}
	if d.group.Formed {
		txt = append(txt,
			"owner="+d.group.OwnerID,
			"with="+d.group.PartnerID,
		)
	}
	return txt
}

func (d *MDNSDriver) setText(txt []string) {
	if d.server == nil || txt == nil {
		return
	}
	d.server.SetText(txt)
}

func (d *MDNSDriver) emit(event Event) {
	select {
	case d.events <- event:
	default:
		d.cfg.Logger.Warn("dropped discovery event", "type", string(event.Type))
	}
}

func parseEntry(entry *zeroconf.ServiceEntry, selfDeviceID string) (scannedPeer, bool) {
	txt := txtToMap(entry.Text)

	deviceID := strings.TrimSpace(txt["device_id"])
	if deviceID == "" || deviceID == selfDeviceID {
		return scannedPeer{}, false
	}

	host := ""
	for _, ip := range append(entry.AddrIPv4, entry.AddrIPv6...) {
		if ip == nil || ip.String() == "" {
			continue
		}
		host = ip.String()
		break
	}
	if host == "" {
		return scannedPeer{}, false
	}

	name := strings.TrimSpace(entry.Instance)
	if name == "" {
		name = deviceID
	}

	return scannedPeer{
		DeviceID:   deviceID,
		Name:       name,
		Address:    net.JoinHostPort(host, fmt.Sprintf("%d", entry.Port)),
		OwnerID:    strings.TrimSpace(txt["owner"]),
		PairedWith: strings.TrimSpace(txt["with"]),
	}, true
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, entry := range text {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(parts[1])
	}
	return out
}
