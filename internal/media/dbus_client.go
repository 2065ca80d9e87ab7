package media

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient defines the interface for D-Bus operations.
// This abstraction allows us to mock D-Bus interactions in tests.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/hushd/hushd/internal/media DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// ListNames returns all names on the bus
	ListNames() ([]string, error)

	// GetProperty retrieves a property from a D-Bus object
	// dest: the bus name (e.g., "org.mpris.MediaPlayer2.spotify")
	// path: the object path (e.g., "/org/mpris/MediaPlayer2")
	// prop: the property name (e.g., "org.mpris.MediaPlayer2.Player.PlaybackStatus")
	GetProperty(dest, path, prop string) (dbus.Variant, error)

	// GetConnectionPID returns the unix process id owning a bus name
	GetConnectionPID(name string) (uint32, error)

	// Call invokes a method with no arguments on a D-Bus object
	Call(dest, path, method string) error
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient creates a real D-Bus client connected to the session bus
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// ListNames returns all names on the bus
func (c *StdDBusClient) ListNames() ([]string, error) {
	var names []string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

// GetProperty retrieves a property from a D-Bus object
func (c *StdDBusClient) GetProperty(dest, path, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.GetProperty(prop)
}

// GetConnectionPID returns the unix process id owning a bus name
func (c *StdDBusClient) GetConnectionPID(name string) (uint32, error) {
	var pid uint32
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetConnectionUnixProcessID", 0, name).Store(&pid)
	return pid, err
}

// Call invokes a method with no arguments on a D-Bus object
func (c *StdDBusClient) Call(dest, path, method string) error {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.Call(method, 0).Err
}
