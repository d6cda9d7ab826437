// Package remark derives an ad's automation mode from the markers the
// backend writes into its remark text.
package remark

import (
	"strings"

	"github.com/Fantasim/p2pads/internal/config"
)

// Mode is the automation mode encoded in a remark.
type Mode int

const (
	Manual Mode = iota
	Auto
	Paused
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Paused:
		return "paused"
	default:
		return "manual"
	}
}

// MarshalText lets Mode render as its name in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Flags is the raw marker presence plus the derived mode.
type Flags struct {
	HasAuto   bool
	HasPaused bool
	Mode      Mode
}

// Classify inspects a remark for automation markers. Matching is plain
// substring containment, so markers may appear anywhere in the text.
// A paused marker without the auto marker is still Manual.
func Classify(text string) Flags {
	f := Flags{
		HasAuto:   strings.Contains(text, config.AutoMarker),
		HasPaused: strings.Contains(text, config.AutoPausedMarker),
	}
	switch {
	case f.HasAuto && f.HasPaused:
		f.Mode = Paused
	case f.HasAuto:
		f.Mode = Auto
	default:
		f.Mode = Manual
	}
	return f
}

// ModeOf is shorthand for Classify(text).Mode.
func ModeOf(text string) Mode {
	return Classify(text).Mode
}
