package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/blastrain/internal/model"
)

const (
	terminalWidthBackup = 80
	colorReset          = "\x1b[0m"
	colorPass           = "\x1b[32m"
	colorFail           = "\x1b[33m"
)

// ErrNoUsername is returned when a report is requested without a user.
var ErrNoUsername = errors.New("username is required")

// Source reads a user's history.
type Source interface {
	FetchHistory(ctx context.Context, username string) (model.History, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Username string
	History  model.History
	Summary  Summary
	// Trend is the moving average of scores, oldest first.
	Trend []float64
}

// BuildReport loads a user's history and prepares it for rendering.
func BuildReport(ctx context.Context, src Source, username string, window int) (Report, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Report{}, ErrNoUsername
	}
	h, err := src.FetchHistory(ctx, username)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Username: username,
		History:  h,
		Summary:  Summarize(h.Results),
		Trend:    MovingAverage(ScoreSeries(h.Results), window),
	}, nil
}

// RenderReport prints progress and recent results. Lines are clipped to the
// terminal width when w is a terminal.
func RenderReport(w io.Writer, r Report) error {
	var b strings.Builder
	if _, err := fmt.Fprintf(&b, "History for %s\n\n", r.Username); err != nil {
		return err
	}
	if err := RenderProgress(&b, r.History.Progress); err != nil {
		return err
	}
	if err := RenderResults(&b, r.History.Results); err != nil {
		return err
	}

	width := 0
	color := false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width = terminalWidth(f)
		color = os.Getenv("NO_COLOR") == ""
	}
	for _, line := range strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n") {
		if width > 0 {
			line = runewidth.Truncate(line, width, "")
		}
		if color {
			line = colorize(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func colorize(line string) string {
	switch {
	case strings.HasSuffix(line, "PASS"):
		return strings.TrimSuffix(line, "PASS") + colorPass + "PASS" + colorReset
	case strings.HasSuffix(line, "FAIL"):
		return strings.TrimSuffix(line, "FAIL") + colorFail + "FAIL" + colorReset
	default:
		return line
	}
}
