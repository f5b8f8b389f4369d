package control

import (
	"fmt"
	"strings"
)

type Mode int

const (
	ModeManual = Mode(iota)
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("unknown_mode_%d", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return ModeManual, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeManual, fmt.Errorf("unknown mode '%s', expected 'auto' or 'manual'", s)
	}
}
