package timesync

import (
	"strconv"
	"strings"
	"time"
)

// FormatRemaining: "2h 30m 15s". Omite las partes en cero y muestra segundos
// si no queda otra cosa. Cero o negativo => "now".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "now"
	}

	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, strconv.FormatInt(s, 10)+"s")
	}
	return strings.Join(parts, " ")
}
