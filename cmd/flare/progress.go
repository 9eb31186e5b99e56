package main

import (
	"fmt"
	"io"
	"time"

	"github.com/yourusername/flare-go/internal/domain"
)

// progressPrinter renders download events on a single rewritten status line
type progressPrinter struct {
	out     io.Writer
	inLine  bool
	lastLen int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) print(event domain.ProgressEvent) {
	switch event.Kind {
	case domain.EventStarted:
		p.note("Starting: " + event.Message)
	case domain.EventProgress:
		p.status(formatProgress(event))
	case domain.EventLogLine:
		if event.Message != "" {
			p.note(event.Message)
		}
	default:
		if event.Result != nil {
			p.note(event.Result.Summary())
		}
	}
}

func (p *progressPrinter) status(line string) {
	fmt.Fprintf(p.out, "\r%s", padRight(line, p.lastLen))
	p.inLine = true
	p.lastLen = len(line)
}

func (p *progressPrinter) note(line string) {
	if p.inLine {
		fmt.Fprintln(p.out)
		p.inLine = false
		p.lastLen = 0
	}
	fmt.Fprintln(p.out, line)
}

func formatProgress(event domain.ProgressEvent) string {
	line := "[  ?  %]"
	if event.Percent != nil {
		line = fmt.Sprintf("[%5.1f%%]", *event.Percent)
	}
	if event.Speed != "" {
		line += " " + event.Speed
	}
	if event.ETA != nil {
		line += " ETA " + event.ETA.Round(time.Second).String()
	}
	return line
}
