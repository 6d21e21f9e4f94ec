// Package bus exposes the agent and counter roles on the system D-Bus and
// registers them with the network daemons.
package bus

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"connman-agent/internal/agent"
	"connman-agent/internal/counter"
)

const (
	connmanService      = "net.connman"
	vpnService          = "net.connman.vpn"
	managerPath         = dbus.ObjectPath("/")
	managerInterface    = "net.connman.Manager"
	vpnManagerInterface = "net.connman.vpn.Manager"
)

// Config controls where objects are exported and whether they are
// registered with the daemons.
type Config struct {
	Register bool
	// Counter registration parameters: accuracy in KB, period in seconds.
	Accuracy uint32
	Period   uint32
}

// Server owns a bus connection and the objects exported on it.
type Server struct {
	conn   *dbus.Conn
	cfg    Config
	logger *slog.Logger

	unregister []func() error
}

// ConnectSystem opens a private connection to the system bus.
func ConnectSystem() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}
	return conn, nil
}

// NewServer wraps conn. logger may be nil.
func NewServer(conn *dbus.Conn, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{conn: conn, cfg: cfg, logger: logger}
}

// ExportAgent publishes a at path and registers it with the daemon.
func (s *Server) ExportAgent(path dbus.ObjectPath, a *agent.Agent) error {
	if err := s.export(&agentObject{agent: a}, path, AgentInterface); err != nil {
		return err
	}
	return s.register(connmanService, managerInterface, "RegisterAgent", "UnregisterAgent", path)
}

// ExportVPNAgent publishes a at path and registers it with the VPN daemon.
func (s *Server) ExportVPNAgent(path dbus.ObjectPath, a *agent.VPNAgent) error {
	if err := s.export(&vpnAgentObject{agent: a}, path, VPNAgentInterface); err != nil {
		return err
	}
	return s.register(vpnService, vpnManagerInterface, "RegisterAgent", "UnregisterAgent", path)
}

// ExportCounter publishes c at path and registers it with the daemon using
// the configured accuracy and period.
func (s *Server) ExportCounter(path dbus.ObjectPath, c *counter.Counter) error {
	if err := s.export(&counterObject{counter: c}, path, CounterInterface); err != nil {
		return err
	}
	return s.register(connmanService, managerInterface, "RegisterCounter", "UnregisterCounter", path, s.cfg.Accuracy, s.cfg.Period)
}

// Close unregisters everything that was registered and closes the
// connection. Unregister failures are logged, not returned.
func (s *Server) Close() error {
	for i := len(s.unregister) - 1; i >= 0; i-- {
		if err := s.unregister[i](); err != nil {
			s.logger.Warn("unregister failed", "error", err)
		}
	}
	s.unregister = nil
	return s.conn.Close()
}

func (s *Server) export(obj any, path dbus.ObjectPath, iface string) error {
	if !path.IsValid() {
		return fmt.Errorf("invalid object path %q", path)
	}
	if err := s.conn.Export(obj, path, iface); err != nil {
		return fmt.Errorf("exporting %s at %s: %w", iface, path, err)
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: iface, Methods: introspect.Methods(obj)},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("exporting introspection at %s: %w", path, err)
	}

	s.logger.Info("exported object", "interface", iface, "path", path)
	return nil
}

func (s *Server) register(service, iface, method, undo string, path dbus.ObjectPath, extra ...any) error {
	if !s.cfg.Register {
		return nil
	}

	obj := s.conn.Object(service, managerPath)
	args := append([]any{path}, extra...)
	if err := obj.Call(iface+"."+method, 0, args...).Err; err != nil {
		return fmt.Errorf("%s.%s: %w", iface, method, err)
	}
	s.logger.Info("registered with daemon", "service", service, "method", method, "path", path)

	s.unregister = append(s.unregister, func() error {
		if err := obj.Call(iface+"."+undo, 0, path).Err; err != nil {
			return fmt.Errorf("%s.%s: %w", iface, undo, err)
		}
		return nil
	})
	return nil
}
