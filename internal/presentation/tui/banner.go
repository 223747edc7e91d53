package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"     _       _                        ",
	"  __| | ___ | |_ _ __ ___   __ _ _ __  ",
	" / _` |/ _ \\| __| '_ ` _ \\ / _` | '_ \\ ",
	"| (_| | (_) | |_| | | | | | (_| | |_) |",
	" \\__,_|\\___/ \\__|_| |_| |_|\\__,_| .__/ ",
	"                                |_|    ",
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// PrintBanner writes the dotmap ASCII banner and version to w, colored when
// the output supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}
