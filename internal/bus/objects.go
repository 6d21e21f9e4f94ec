package bus

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"connman-agent/internal/agent"
	"connman-agent/internal/counter"
)

// Interfaces the daemons call into.
const (
	AgentInterface    = "net.connman.Agent"
	VPNAgentInterface = "net.connman.vpn.Agent"
	CounterInterface  = "net.connman.Counter"
)

// Each exported object serialises its calls: a second call waits until the
// operator has answered the first. Cancel is the exception, since it is sent
// while a request is still pending.

type agentObject struct {
	mu    sync.Mutex
	agent *agent.Agent
}

func (o *agentObject) Release() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agent.Release()
	return nil
}

func (o *agentObject) ReportError(service dbus.ObjectPath, message string) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return replyError(AgentInterface, o.agent.ReportError(string(service), message))
}

func (o *agentObject) RequestBrowser(service dbus.ObjectPath, url string) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return replyError(AgentInterface, o.agent.RequestBrowser(string(service), url))
}

func (o *agentObject) RequestInput(service dbus.ObjectPath, fields map[string]dbus.Variant) (map[string]dbus.Variant, *dbus.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	reply, err := o.agent.RequestInput(string(service), unwrapDict(fields))
	if err != nil {
		return nil, replyError(AgentInterface, err)
	}
	return replyVariants(reply), nil
}

func (o *agentObject) Cancel() *dbus.Error {
	o.agent.Cancel()
	return nil
}

type vpnAgentObject struct {
	mu    sync.Mutex
	agent *agent.VPNAgent
}

func (o *vpnAgentObject) Release() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agent.Release()
	return nil
}

func (o *vpnAgentObject) ReportError(service dbus.ObjectPath, message string) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return replyError(VPNAgentInterface, o.agent.ReportError(string(service), message))
}

func (o *vpnAgentObject) RequestInput(service dbus.ObjectPath, fields map[string]dbus.Variant) (map[string]dbus.Variant, *dbus.Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	reply, err := o.agent.RequestInput(string(service), unwrapDict(fields))
	if err != nil {
		return nil, replyError(VPNAgentInterface, err)
	}
	return replyVariants(reply), nil
}

func (o *vpnAgentObject) Cancel() *dbus.Error {
	o.agent.Cancel()
	return nil
}

type counterObject struct {
	mu      sync.Mutex
	counter *counter.Counter
}

func (o *counterObject) Release() *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counter.Release()
	return nil
}

func (o *counterObject) Usage(service dbus.ObjectPath, home, roaming map[string]dbus.Variant) *dbus.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counter.Usage(string(service), counterValues(home), counterValues(roaming))
	return nil
}
