package bus

import (
	"errors"
	"math"

	"github.com/godbus/dbus/v5"

	"connman-agent/internal/agent"
)

const errInvalidArgs = "org.freedesktop.DBus.Error.InvalidArgs"

// unwrap strips variants recursively so the core only sees plain Go values.
func unwrap(v any) any {
	switch t := v.(type) {
	case dbus.Variant:
		return unwrap(t.Value())
	case map[string]dbus.Variant:
		m := make(map[string]any, len(t))
		for k, sub := range t {
			m[k] = unwrap(sub.Value())
		}
		return m
	case []dbus.Variant:
		s := make([]any, len(t))
		for i, sub := range t {
			s[i] = unwrap(sub.Value())
		}
		return s
	case dbus.ObjectPath:
		return string(t)
	default:
		return t
	}
}

// unwrapDict converts an a{sv} argument.
func unwrapDict(dict map[string]dbus.Variant) map[string]any {
	out := make(map[string]any, len(dict))
	for k, v := range dict {
		out[k] = unwrap(v)
	}
	return out
}

// counterValues extracts integer counters. Non-integer values are skipped.
func counterValues(dict map[string]dbus.Variant) map[string]int64 {
	out := make(map[string]int64, len(dict))
	for k, v := range dict {
		if n, ok := toInt64(v.Value()); ok {
			out[k] = n
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case dbus.Variant:
		return toInt64(n.Value())
	default:
		return 0, false
	}
}

// replyVariants wraps an agent reply for the wire.
func replyVariants(reply agent.Reply) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(reply))
	for k, v := range reply {
		out[k] = dbus.MakeVariant(v)
	}
	return out
}

// replyError maps an agent error onto the D-Bus error names the daemon
// understands for iface. A nil err gives a nil reply error.
func replyError(iface string, err error) *dbus.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, agent.ErrCanceled):
		return dbus.NewError(iface+".Error.Canceled", []any{"User cancelled the dialog"})
	case errors.Is(err, agent.ErrRetry):
		return dbus.NewError(iface+".Error.Retry", []any{"Going to retry the request"})
	case errors.Is(err, agent.ErrMalformedPayload):
		return dbus.NewError(errInvalidArgs, []any{err.Error()})
	default:
		return dbus.MakeFailedError(err)
	}
}
