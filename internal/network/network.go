// Package network joins the configured wireless network and reports whether
// the host can reach the outside world.
//
// Association is delegated to NetworkManager through its nmcli command line
// tool, which is present on the usual Raspberry Pi images.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Errors
var (
	ErrNotConnected = errors.New("network: not connected")
	ErrNoTool       = errors.New("network: nmcli not found")
)

// DefaultTimeout bounds an association attempt.
const DefaultTimeout = 30 * time.Second

// Runner runs a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, ErrNoTool
	}
	return exec.CommandContext(ctx, path, args...).CombinedOutput()
}

// Manager owns the network identity of the clock.
type Manager struct {
	SSID     string
	Password string
	Timeout  time.Duration

	run   Runner
	addrs func() ([]net.Addr, error)
}

// New returns a Manager for the given network. An empty ssid leaves the
// network setup to the host.
func New(ssid, password string, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		SSID:     ssid,
		Password: password,
		Timeout:  timeout,
		run:      execRunner,
		addrs:    net.InterfaceAddrs,
	}
}

// Connect joins the network, waiting at most Timeout. A failure is not fatal
// for the clock, which carries on offline.
func (m *Manager) Connect(ctx context.Context) error {
	if m.SSID == "" {
		log.Info().Bool("connected", m.Connected()).Msg("no wifi network configured, using host network")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	args := []string{"--wait", strconv.Itoa(int(m.Timeout / time.Second)), "device", "wifi", "connect", m.SSID}
	if m.Password != "" {
		args = append(args, "password", m.Password)
	}

	log.Info().Str("ssid", m.SSID).Dur("timeout", m.Timeout).Msg("connecting to wifi")
	out, err := m.run(ctx, "nmcli", args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		log.Warn().Err(err).Str("ssid", m.SSID).Str("output", msg).Msg("wifi connection failed")
		if msg != "" {
			return fmt.Errorf("network: connect %s: %w: %s", m.SSID, err, msg)
		}
		return fmt.Errorf("network: connect %s: %w", m.SSID, err)
	}

	if !m.Connected() {
		log.Warn().Str("ssid", m.SSID).Msg("associated but no usable address")
		return ErrNotConnected
	}
	log.Info().Str("ssid", m.SSID).Msg("wifi connected")
	return nil
}

// Connected reports whether any interface holds a routable address.
func (m *Manager) Connected() bool {
	addrs, err := m.addrs()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list interface addresses")
		return false
	}
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		default:
			continue
		}
		if ip.IsGlobalUnicast() || ip.IsPrivate() {
			return true
		}
	}
	return false
}
