package velocity

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoteOutOfRange = errors.New("note out of midi range")

// Profile describes how key indices and travel times become midi notes and velocities.
type Profile struct {
	Name string

	MiddleCNote uint8 // midi note of middle C
	MiddleCKey  uint8 // keybed index of middle C

	MinTravel uint8 // milliseconds, this or faster is the loudest stroke
	MaxTravel uint8 // milliseconds, this or slower is the softest stroke

	CurveName string
	Exponent  float64
	Curve     Curve

	Channel uint8
}

func DefaultProfile() Profile {
	return Profile{
		Name:        "default",
		MiddleCNote: 60,
		MiddleCKey:  24,
		MinTravel:   1,
		MaxTravel:   80,
		CurveName:   CurvePow,
		Exponent:    2,
		Curve:       Pow(2),
		Channel:     0,
	}
}

func (p Profile) Validate() error {
	if p.MinTravel >= p.MaxTravel {
		return fmt.Errorf("min travel (%d) has to be lower than max travel (%d)", p.MinTravel, p.MaxTravel)
	}
	if p.Channel > 15 {
		return fmt.Errorf("channel %d out of range 0-15", p.Channel)
	}
	if p.MiddleCNote > 127 {
		return fmt.Errorf("middle C note %d out of range 0-127", p.MiddleCNote)
	}
	if p.Curve == nil {
		return errors.New("missing curve")
	}
	return nil
}

func (p Profile) Note(key uint8) (uint8, error) {
	note := int(key) + int(p.MiddleCNote) - int(p.MiddleCKey)
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("%w: key %d gives note %d", ErrNoteOutOfRange, key, note)
	}
	return uint8(note), nil
}

// Velocity turns a travel time into a midi velocity in 1..127, a shorter travel means a harder stroke.
func (p Profile) Velocity(travel uint8) uint8 {
	if p.MaxTravel <= p.MinTravel {
		return 127
	}
	t := min(max(travel, p.MinTravel), p.MaxTravel)
	x := float64(t-p.MinTravel) / float64(p.MaxTravel-p.MinTravel)

	c := p.Curve(x)
	if math.IsNaN(c) {
		c = x
	}
	c = math.Min(math.Max(c, 0), 1)

	return uint8(math.Round(127 - c*126))
}

func (p Profile) String() string {
	curve := p.CurveName
	if curve == CurvePow {
		curve = fmt.Sprintf("%s(%g)", curve, p.Exponent)
	}
	return fmt.Sprintf("%s: travel %d-%dms, %s, channel %d", p.Name, p.MinTravel, p.MaxTravel, curve, p.Channel+1)
}
