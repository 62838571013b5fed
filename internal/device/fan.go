package device

import (
	"fmt"
	"strings"
)

// FanMode is the operating mode of a fan.
type FanMode string

const (
	FanModeOn   FanMode = "on"
	FanModeOff  FanMode = "off"
	FanModeAuto FanMode = "auto"
)

// FanState is a fan's on-flag, speed and mode. On is nil in auto mode,
// where the device decides for itself; that is distinct from off.
type FanState struct {
	On    *bool   `json:"fan_on"`
	Speed int     `json:"fan_speed"`
	Mode  FanMode `json:"fan_mode"`
}

// ParseFanMode accepts on, off or auto in any letter case.
func ParseFanMode(s string) (FanMode, error) {
	switch m := FanMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FanModeOn, FanModeOff, FanModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFanMode, s)
	}
}

// NormalizeFanState applies mode semantics to a reported state:
//
//	off   on=false, speed=0
//	on    on=true, speed as given (0 if absent)
//	auto  on=nil, speed as given (0 if absent)
//
// Any reported on-flag is ignored in favour of the mode.
func NormalizeFanState(mode string, speed *int) (FanState, error) {
	m, err := ParseFanMode(mode)
	if err != nil {
		return FanState{}, err
	}

	s := 0
	if speed != nil {
		if *speed < 0 {
			return FanState{}, fmt.Errorf("%w: %d", ErrInvalidFanSpeed, *speed)
		}
		s = *speed
	}

	switch m {
	case FanModeOff:
		off := false
		return FanState{On: &off, Speed: 0, Mode: m}, nil
	case FanModeOn:
		on := true
		return FanState{On: &on, Speed: s, Mode: m}, nil
	default:
		return FanState{On: nil, Speed: s, Mode: m}, nil
	}
}
