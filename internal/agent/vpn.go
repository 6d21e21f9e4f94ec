package agent

import (
	"log/slog"
	"strconv"
	"strings"

	"connman-agent/internal/inputlog"
	"connman-agent/internal/payload"
)

// Control fields of a VPN input request that are kept as session state.
const (
	KeyAllowStoreCredentials    = "AllowStoreCredentials"
	KeyAllowRetrieveCredentials = "AllowRetrieveCredentials"
	KeyKeepCredentials          = "KeepCredentials"
	KeyAuthFailure              = "VpnAgent.AuthFailure"
)

// SessionFlags is the credential policy the VPN daemon last announced.
type SessionFlags struct {
	AllowStoreCredentials    bool
	AllowRetrieveCredentials bool
	KeepCredentials          bool
	AuthFailure              string
}

// VPNAgent serves the VPN daemon's agent interface. It has no browser
// login, and it remembers SessionFlags across requests.
type VPNAgent struct {
	handler

	session SessionFlags
}

// NewVPNAgent creates a VPN agent. inputLog and logger may be nil.
func NewVPNAgent(prompter Prompter, inputLog *inputlog.Log, logger *slog.Logger) *VPNAgent {
	return &VPNAgent{handler: newHandler(RoleVPN, prompter, inputLog, logger)}
}

// Session returns the current session flags.
func (v *VPNAgent) Session() SessionFlags {
	return v.session
}

// RequestInput is Agent.RequestInput plus control fields. Session flags
// present in the request overwrite the held ones; absent ones are kept.
func (v *VPNAgent) RequestInput(service string, raw map[string]any) (Reply, error) {
	fields, err := v.decode(service, raw)
	if err != nil {
		return nil, err
	}
	v.session = v.session.update(fields, v.logger)
	return v.collect(service, fields)
}

func (s SessionFlags) update(fields payload.Fields, logger *slog.Logger) SessionFlags {
	for key, dst := range map[string]*bool{
		KeyAllowStoreCredentials:    &s.AllowStoreCredentials,
		KeyAllowRetrieveCredentials: &s.AllowRetrieveCredentials,
		KeyKeepCredentials:          &s.KeepCredentials,
	} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		*dst = parseFlag(value)
		if logger != nil {
			logger.Debug("session flag", "key", key, "raw", value, "value", *dst)
		}
	}
	if msg, ok := fields[KeyAuthFailure]; ok {
		s.AuthFailure = msg
	}
	return s
}

// parseFlag reads a boolean case-insensitively. Unrecognised text is false.
func parseFlag(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	return err == nil && b
}
