package counter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Units switch slightly before the next power of 1024 is reached.
const (
	bytesCutoff = 1920               // 1024 * 1.875
	kiloCutoff  = 1920 * 1024        // 1024² * 1.875
	megaCutoff  = 1920 * 1024 * 1024 // 1024³ * 1.875
)

// FormatLabel renders a full snapshot as the three-block usage summary.
func FormatLabel(s Snapshot) string {
	var b strings.Builder

	b.WriteString("Transmit:\n")
	b.WriteString(direction("TX", s))
	b.WriteString("\n\nReceived:\n")
	b.WriteString(direction("RX", s))
	b.WriteString("\n\nConnect Time:\n")
	b.WriteString(formatElapsed(s[KeyTime]))

	return b.String()
}

func direction(prefix string, s Snapshot) string {
	return fmt.Sprintf("%[1]s Total: %[2]s (%[3]s),  %[1]s Errors: %[4]s,  %[1]s Dropped: %[5]s",
		prefix,
		packets(s[prefix+".Packets"]),
		formatBytes(s[prefix+".Bytes"]),
		packets(s[prefix+".Errors"]),
		packets(s[prefix+".Dropped"]),
	)
}

func formatBytes(n int64) string {
	switch {
	case n < bytesCutoff:
		return humanize.Comma(n) + " Bytes"
	case n < kiloCutoff:
		return oneDecimal(float64(n)/1024) + " KB"
	case n < megaCutoff:
		return oneDecimal(float64(n)/(1024*1024)) + " MB"
	default:
		return oneDecimal(float64(n)/(1024*1024*1024)) + " GB"
	}
}

// oneDecimal formats f with one fractional digit and grouped thousands.
func oneDecimal(f float64) string {
	whole, frac, _ := strings.Cut(strconv.FormatFloat(f, 'f', 1, 64), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return whole + "." + frac
	}
	return humanize.Comma(n) + "." + frac
}

func packets(n int64) string {
	return plural(n, "Packet")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return humanize.Comma(n) + " " + unit + "s"
}

// formatElapsed breaks seconds into days, hours, minutes and seconds. Once a
// unit is shown every smaller unit is shown too; seconds always are.
func formatElapsed(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	secs %= 60

	var parts []string
	shown := false
	for _, u := range []struct {
		n    int64
		name string
	}{
		{days, "Day"},
		{hours, "Hour"},
		{minutes, "Minute"},
	} {
		if u.n > 0 || shown {
			parts = append(parts, plural(u.n, u.name))
			shown = true
		}
	}
	parts = append(parts, plural(secs, "Second"))

	return strings.Join(parts, " ")
}
