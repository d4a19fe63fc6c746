package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner writes the start-up banner with a few key/value lines.
func PrintBanner(w io.Writer, color bool, kv [][2]string) {
	lineColor, textColor, reset := "", "", ""
	if color {
		lineColor = banner.ColorCyan
		textColor = banner.ColorBold + banner.ColorWhite
		reset = banner.ColorReset
	}
	width := 50
	hr := lineColor + strings.Repeat("═", width) + reset

	fmt.Fprintf(w, "\n%s\n", hr)
	fmt.Fprintf(w, "%s  WALLET  personal finance tracker%s\n", textColor, reset)
	fmt.Fprintf(w, "%s\n", hr)

	kvPad := 10
	for _, line := range kv {
		fmt.Fprintf(w, "%s  %-*s %s%s\n", textColor, kvPad, line[0], line[1], reset)
	}
	fmt.Fprintln(w)
}
