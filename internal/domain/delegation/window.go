package delegation

import (
	"fmt"
	"strings"
	"time"
)

// Window is the proposed pickup slot: a calendar date plus a from/to time range.
type Window struct {
	Date string // 2006-01-02
	From string // 15:04
	To   string // 15:04
}

func (w Window) IsZero() bool {
	return w.Date == "" && w.From == "" && w.To == ""
}

func (w Window) Validate() error {
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(w.Date)); err != nil {
		return fmt.Errorf("%w: date %q", ErrWindowInvalid, w.Date)
	}
	from, err := time.Parse("15:04", strings.TrimSpace(w.From))
	if err != nil {
		return fmt.Errorf("%w: from %q", ErrWindowInvalid, w.From)
	}
	to, err := time.Parse("15:04", strings.TrimSpace(w.To))
	if err != nil {
		return fmt.Errorf("%w: to %q", ErrWindowInvalid, w.To)
	}
	if !to.After(from) {
		return fmt.Errorf("%w: %s-%s is not a positive range", ErrWindowInvalid, w.From, w.To)
	}
	return nil
}

// Summary renders the window for history event details.
func (w Window) Summary() string {
	return fmt.Sprintf("%s %s-%s", w.Date, w.From, w.To)
}
