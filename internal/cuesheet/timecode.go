package cuesheet

import (
	"fmt"
	"strconv"
)

const (
	// SectorSize is the size of a raw CD sector.
	SectorSize = 2352
	// FramesPerSecond is the CD addressing rate: one frame per sector.
	FramesPerSecond = 75
	// PregapFrames is the two second lead-in before the first data sector.
	PregapFrames = 2 * FramesPerSecond
)

// Timecode is a CD position counted in frames.
type Timecode int64

// NewTimecode builds a timecode from minutes, seconds, and frames.
func NewTimecode(minutes, seconds, frames int64) Timecode {
	return Timecode((minutes*60+seconds)*FramesPerSecond + frames)
}

// Split returns the minutes, seconds, and frames of t.
func (t Timecode) Split() (minutes, seconds, frames int64) {
	total := int64(t)
	frames = total % FramesPerSecond
	seconds = (total / FramesPerSecond) % 60
	minutes = total / (FramesPerSecond * 60)
	return minutes, seconds, frames
}

// String formats t as MM:SS:FF.
func (t Timecode) String() string {
	m, s, f := t.Split()
	return fmt.Sprintf("%02d:%02d:%02d", m, s, f)
}

// ParseTimecode reads an MM:SS:FF value. Minutes may use more than two digits.
func ParseTimecode(value string) (Timecode, error) {
	if len(value) < 8 || value[len(value)-3] != ':' || value[len(value)-6] != ':' {
		return 0, fmt.Errorf("wrong time format: %s", value)
	}
	fields := [3]string{value[:len(value)-6], value[len(value)-5 : len(value)-3], value[len(value)-2:]}
	var parts [3]int64
	for i, field := range fields {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("wrong time format: %s", value)
		}
		parts[i] = n
	}
	if parts[1] >= 60 || parts[2] >= FramesPerSecond {
		return 0, fmt.Errorf("time out of range: %s", value)
	}
	return NewTimecode(parts[0], parts[1], parts[2]), nil
}

// SectorSizeForType returns the bytes per sector implied by a TRACK type.
func SectorSizeForType(trackType string) int64 {
	switch trackType {
	case "MODE1/2048":
		return 2048
	case "MODE2/2336":
		return 2336
	case "CDG":
		return 2448
	default:
		return SectorSize
	}
}
