// Package agent handles the interactive requests the network daemon sends
// to its registered agents: input requests, browser logins, error reports.
// The operator is reached through a Prompter.
package agent

import (
	"fmt"
	"io"
	"log/slog"

	"connman-agent/internal/inputlog"
	"connman-agent/internal/payload"
)

// Reply is the dictionary returned to the daemon for RequestInput.
type Reply map[string]any

// Role distinguishes the service agent from the VPN agent.
type Role int

const (
	RoleAgent Role = iota
	RoleVPN
)

func (r Role) String() string {
	if r == RoleVPN {
		return "VPN_Agent"
	}
	return "Agent"
}

// Filter returns the requirements surfaced to the operator for this role.
func (r Role) Filter() payload.Filter {
	if r == RoleVPN {
		return payload.VPNFilter
	}
	return payload.AgentFilter
}

// Prompter is the operator-facing collaborator. Each method blocks until
// the operator answers.
type Prompter interface {
	// RequestInput shows fields and returns the operator's reply, or
	// ok=false if the operator cancelled. reqs holds the requirement of
	// every field; prefilled mandatory and control values belong in the
	// reply, informational ones do not.
	RequestInput(role Role, fields payload.Fields, reqs payload.Requirements) (reply Reply, ok bool)
	// RequestBrowser asks the operator to complete a login at url.
	RequestBrowser(url string) (confirmed bool)
	// ReportError shows a daemon error and asks whether to retry.
	ReportError(message string) (retry bool)
	// Info shows a message with no choice attached.
	Info(message string)
}

const cancelMessage = "The agent request failed before a reply was returned."

// handler is the behaviour shared by both agent roles.
type handler struct {
	role     Role
	decoder  payload.Decoder
	prompter Prompter
	inputLog *inputlog.Log
	logger   *slog.Logger

	fields payload.Fields
	reqs   payload.Requirements
}

func newHandler(role Role, prompter Prompter, inputLog *inputlog.Log, logger *slog.Logger) handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return handler{
		role:     role,
		decoder:  payload.Decoder{Filter: role.Filter()},
		prompter: prompter,
		inputLog: inputLog,
		logger:   logger.With("role", role.String()),
	}
}

// Release is called when the daemon unregisters the agent.
func (h *handler) Release() {
	h.logger.Debug("agent released")
}

// ReportError shows message to the operator. It returns ErrRetry if the
// operator wants the daemon to try again, nil otherwise.
func (h *handler) ReportError(service, message string) error {
	h.logger.Info("daemon reported error", "service", service, "error", message)
	if h.prompter.ReportError(message) {
		return ErrRetry
	}
	return nil
}

// Cancel tells the operator that the pending request was abandoned.
func (h *handler) Cancel() {
	h.logger.Info("request canceled by daemon")
	h.prompter.Info(cancelMessage)
}

// Fields returns the input map decoded by the most recent RequestInput.
func (h *handler) Fields() payload.Fields {
	return h.fields
}

// decode replaces the held input map with the decoded raw payload.
func (h *handler) decode(service string, raw map[string]any) (payload.Fields, error) {
	h.fields, h.reqs = nil, nil

	session := h.inputLog.Begin(h.role.String())
	defer session.Close()

	fields, reqs, err := h.decoder.DecodeRequest(raw, session)
	if err != nil {
		h.logger.Warn("malformed input request", "service", service, "error", err)
		return nil, fmt.Errorf("decoding input request for %s: %w", service, err)
	}
	h.fields, h.reqs = fields, reqs
	h.logger.Debug("input requested", "service", service, "fields", fields.Keys(), "request_id", session.ID())
	return fields, nil
}

func (h *handler) collect(service string, fields payload.Fields) (Reply, error) {
	reply, ok := h.prompter.RequestInput(h.role, fields, h.reqs)
	if !ok {
		h.logger.Info("input request canceled by operator", "service", service)
		return nil, ErrCanceled
	}
	if reply == nil {
		reply = Reply{}
	}
	return reply, nil
}

// Agent serves the daemon's service agent interface.
type Agent struct {
	handler
}

// NewAgent creates a service agent. inputLog and logger may be nil.
func NewAgent(prompter Prompter, inputLog *inputlog.Log, logger *slog.Logger) *Agent {
	return &Agent{handler: newHandler(RoleAgent, prompter, inputLog, logger)}
}

// RequestInput decodes raw, asks the operator for the mandatory fields and
// returns their reply. It fails with ErrCanceled when the operator declines
// and with ErrMalformedPayload when raw is not a dictionary of dictionaries.
func (a *Agent) RequestInput(service string, raw map[string]any) (Reply, error) {
	fields, err := a.decode(service, raw)
	if err != nil {
		return nil, err
	}
	return a.collect(service, fields)
}

// RequestBrowser asks the operator to log in at url. It fails with
// ErrCanceled when the operator declines.
func (a *Agent) RequestBrowser(service, url string) error {
	a.logger.Info("browser login requested", "service", service, "url", url)
	if !a.prompter.RequestBrowser(url) {
		return ErrCanceled
	}
	return nil
}
