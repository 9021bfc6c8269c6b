package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oshokin/alarm-clock/internal/device/command"
)

// Credentials authenticate the device on the wireless network.
type Credentials struct {
	SSID     string
	Password string
}

// Driver is the wireless link hardware.
type Driver interface {
	// IsConnected reports whether the link is currently up.
	IsConnected(ctx context.Context) bool
	// Connect starts joining the network; the link may come up later.
	Connect(ctx context.Context, credentials Credentials) error
	// DeviceAddress returns the stable hardware address of the device.
	DeviceAddress() (string, error)
}

// errNoHardwareAddress is returned when no interface carries a hardware address.
var errNoHardwareAddress = errors.New("no interface with a hardware address")

// NmcliDriver drives NetworkManager through its command line client.
type NmcliDriver struct {
	run       command.Runner
	iface     string
	addresses func() ([]net.Interface, error)
}

// NewNmcliDriver creates a driver bound to iface; empty iface lets
// NetworkManager and DeviceAddress pick the interface.
func NewNmcliDriver(iface string, run command.Runner) *NmcliDriver {
	if run == nil {
		run = command.Exec
	}

	return &NmcliDriver{
		run:       run,
		iface:     iface,
		addresses: net.Interfaces,
	}
}

// IsConnected reports NetworkManager's global connectivity state.
func (d *NmcliDriver) IsConnected(ctx context.Context) bool {
	output, err := d.run(ctx, "nmcli", "-t", "-f", "STATE", "general")
	if err != nil {
		return false
	}

	return strings.TrimSpace(string(output)) == "connected"
}

// Connect asks NetworkManager to join the network.
func (d *NmcliDriver) Connect(ctx context.Context, credentials Credentials) error {
	args := []string{"device", "wifi", "connect", credentials.SSID}
	if credentials.Password != "" {
		args = append(args, "password", credentials.Password)
	}

	if d.iface != "" {
		args = append(args, "ifname", d.iface)
	}

	if _, err := d.run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("connect to %q: %w", credentials.SSID, err)
	}

	return nil
}

// DeviceAddress returns the hardware address of the configured interface.
func (d *NmcliDriver) DeviceAddress() (string, error) {
	return hardwareAddress(d.addresses, d.iface)
}

// NoneDriver is used where the host manages networking on its own:
// the link is always reported as up.
type NoneDriver struct {
	iface     string
	addresses func() ([]net.Interface, error)
}

// NewNoneDriver creates a driver reporting the hardware address of iface.
func NewNoneDriver(iface string) *NoneDriver {
	return &NoneDriver{
		iface:     iface,
		addresses: net.Interfaces,
	}
}

// IsConnected always returns true.
func (*NoneDriver) IsConnected(context.Context) bool { return true }

// Connect does nothing.
func (*NoneDriver) Connect(context.Context, Credentials) error { return nil }

// DeviceAddress returns the hardware address of the configured interface.
func (d *NoneDriver) DeviceAddress() (string, error) {
	return hardwareAddress(d.addresses, d.iface)
}

// hardwareAddress picks the named interface or the first one with a hardware address.
func hardwareAddress(list func() ([]net.Interface, error), name string) (string, error) {
	interfaces, err := list()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}

		if name == "" || iface.Name == name {
			return iface.HardwareAddr.String(), nil
		}
	}

	return "", errNoHardwareAddress
}
