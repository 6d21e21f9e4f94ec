package lineprotocol

import (
	"fmt"
	"sort"
	"strings"

	"connman-agent/internal/counter"
)

const measurement = "connman_usage"

// Format converts a usage update into InfluxDB line protocol output.
// Returns one line per scope that has any counters.
func Format(u counter.Update, host string) string {
	var lines []string

	for _, scoped := range []struct {
		scope counter.Scope
		snap  counter.Snapshot
	}{
		{counter.Home, u.Home},
		{counter.Roaming, u.Roaming},
	} {
		if line := formatLine(host, u.Service, scoped.scope, scoped.snap); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func formatLine(host, service string, scope counter.Scope, fields counter.Snapshot) string {
	if len(fields) == 0 {
		return ""
	}

	tags := fmt.Sprintf("%s,host=%s,scope=%s", measurement, escapeTagValue(host), scope)
	if service != "" {
		tags += fmt.Sprintf(",service=%s", escapeTagValue(service))
	}

	// Sorted for deterministic output
	fieldParts := make([]string, 0, len(fields))
	for name, value := range fields {
		fieldParts = append(fieldParts, fmt.Sprintf("%s=%di", cleanFieldName(name), value))
	}
	sort.Strings(fieldParts)

	return tags + " " + strings.Join(fieldParts, ",")
}

// cleanFieldName transforms counter metric names into InfluxDB-safe field names.
//
//	"TX.Bytes"   → "tx_bytes"
//	"RX.Dropped" → "rx_dropped"
//	"Time"       → "time_seconds"
func cleanFieldName(name string) string {
	if name == counter.KeyTime {
		return "time_seconds"
	}
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, ".", "_")
	return strings.ReplaceAll(name, "-", "_")
}

// escapeTagValue escapes special characters in InfluxDB line protocol tag values.
func escapeTagValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, " ", `\ `)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return s
}
