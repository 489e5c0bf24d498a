package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/dealercheck/internal/risk"
)

// CheckProgress renders a progress bar advanced once per finished check.
// Done is safe for concurrent use.
type CheckProgress struct {
	bar *progressbar.ProgressBar
}

// NewCheckProgress creates a progress bar for total checks.
func NewCheckProgress(w io.Writer, total int) *CheckProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Checking dealer...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &CheckProgress{bar: bar}
}

// Done marks check as finished.
func (p *CheckProgress) Done(check risk.Check) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s done[reset]", check))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar, e.g. when the analysis aborted early.
func (p *CheckProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
