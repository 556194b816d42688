package model

import (
	"fmt"
	"strings"
)

// Mode selects the output document shape for a run.
type Mode int

const (
	ModeStandard Mode = iota
	ModeTimeline
)

func (m Mode) String() string {
	if m == ModeTimeline {
		return "timeline"
	}
	return "standard"
}

// ParseMode parses "standard" or "timeline" (case-insensitive).
// An empty string selects ModeStandard.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return ModeStandard, nil
	case "timeline":
		return ModeTimeline, nil
	default:
		return ModeStandard, fmt.Errorf("unknown mode %q: %w", s, ErrInvalidConfiguration)
	}
}
