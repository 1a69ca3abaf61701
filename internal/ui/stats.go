package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/brogergvhs/batocbz/internal/util"
)

type SkippedImage struct {
	Chapter string
	Index   int
	Locator string
	Err     error
}

type FailedAddress struct {
	Address string
	Err     error
}

// Stats accumulates one run. The pipeline is sequential so no locking.
type Stats struct {
	Chapters int
	Images   int
	Bytes    int64
	Skipped  []SkippedImage
	Failed   []FailedAddress
	Start    time.Time
}

func NewStats() *Stats {
	return &Stats{Start: time.Now()}
}

func (s *Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Chapters: %d\n", s.Chapters)
	_, _ = fmt.Fprintf(w, "Images:   %d\n", s.Images)
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.Human(s.Bytes))
	if !s.Start.IsZero() {
		_, _ = fmt.Fprintf(w, "Time:     %s\n", time.Since(s.Start).Round(time.Second))
	}

	if len(s.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "\nSkipped images (%d):\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			_, _ = fmt.Fprintf(w, "  %s %03d.jpg  %s: %v\n", sk.Chapter, sk.Index, sk.Locator, sk.Err)
		}
	}

	if len(s.Failed) > 0 {
		_, _ = fmt.Fprintf(w, "\nFailed addresses (%d):\n", len(s.Failed))
		for _, f := range s.Failed {
			_, _ = fmt.Fprintf(w, "  %s: %v\n", f.Address, f.Err)
		}
	}
}
