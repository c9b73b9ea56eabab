package display

import (
	"fmt"

	"github.com/d2r2/go-hd44780"
)

type ScreenConfig struct {
	Enabled     bool
	LcdType     hd44780.LcdType
	Bus         int
	Address     uint8
	UpdateRate  int
	ExitMessage [4]string
}

func (s *ScreenConfig) HaveExitMessage() bool {
	for _, v := range s.ExitMessage {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Width is the number of characters in a line.
func (s *ScreenConfig) Width() int {
	if s.LcdType == hd44780.LCD_16x2 {
		return 16
	}
	return 20
}

// Lines is the number of lines the screen shows.
func (s *ScreenConfig) Lines() int {
	if s.LcdType == hd44780.LCD_16x2 {
		return 2
	}
	return 4
}

func ParseLcdType(s string) (hd44780.LcdType, error) {
	switch s {
	case "16x2":
		return hd44780.LCD_16x2, nil
	case "20x4":
		return hd44780.LCD_20x4, nil
	default:
		return hd44780.LCD_UNKNOWN, fmt.Errorf("unsupported screen type \"%s\", expected 16x2 or 20x4", s)
	}
}
