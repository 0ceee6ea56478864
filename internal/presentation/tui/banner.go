package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []termenv.Style{
		termenv.String("     _            _                _       _     ").Foreground(p.Color("#818cf8")),
		termenv.String("    (_) __ _  ___| | ___ __   __ _| |_ ___| |__  ").Foreground(p.Color("#a78bfa")),
		termenv.String("    | |/ _` |/ __| |/ / '_ \\ / _` | __/ __| '_ \\ ").Foreground(p.Color("#c084fc")),
		termenv.String("    | | (_| | (__|   <| |_) | (_| | || (__| | | |").Foreground(p.Color("#e879f9")),
		termenv.String("   _/ |\\__,_|\\___|_|\\_\\ .__/ \\__,_|\\__\\___|_| |_|").Foreground(p.Color("#f472b6")),
		termenv.String("  |__/                |_|                        ").Foreground(p.Color("#fb7185")),
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
