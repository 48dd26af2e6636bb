package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/brandonbloom/cliharness/internal/runner"
	"github.com/brandonbloom/cliharness/internal/timefmt"
)

var (
	colorStatusOK      = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorStatusFail    = color.New(color.FgHiRed, color.Bold).SprintFunc()
	colorStatusTimeout = color.New(color.FgYellow, color.Bold).SprintFunc()
	colorStatusDetail  = color.New(color.FgHiBlack).SprintFunc()
)

const defaultStatusWidth = 80

func showStatus(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	default:
		return writerIsTerminal(w)
	}
}

// formatStatus renders one line summarising res, truncated to width columns.
func formatStatus(res *runner.Result, timeout time.Duration, width int) string {
	var label string
	paint := colorStatusOK
	switch {
	case res.TimedOut:
		label = fmt.Sprintf("timed out after %s", timefmt.Elapsed(timeout))
		paint = colorStatusTimeout
	case res.ExitStatus == 0:
		label = "ok"
	default:
		label = fmt.Sprintf("exit %d", res.ExitStatus)
		paint = colorStatusFail
	}
	detail := fmt.Sprintf("%s  %s", timefmt.Elapsed(res.Duration), strings.Join(res.Argv, " "))

	if width <= 0 {
		width = defaultStatusWidth
	}
	prefix := "> " + paint(label) + "  "
	room := width - runewidth.StringWidth("> "+label+"  ")
	if room < 1 {
		return prefix
	}
	return prefix + colorStatusDetail(runewidth.Truncate(detail, room, "..."))
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultStatusWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultStatusWidth
	}
	return width
}
