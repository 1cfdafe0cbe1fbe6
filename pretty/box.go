package pretty

import "os"

// BoxStyle defines the characters used for drawing panel borders.
type BoxStyle struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Horizontal  string
	Vertical    string
	LeftT       string
	RightT      string
}

var (
	// BoxRounded uses rounded corner box drawing characters (Unicode)
	BoxRounded = BoxStyle{
		TopLeft:     "╭",
		TopRight:    "╮",
		BottomLeft:  "╰",
		BottomRight: "╯",
		Horizontal:  "─",
		Vertical:    "│",
		LeftT:       "├",
		RightT:      "┤",
	}

	// BoxASCII uses ASCII characters for maximum compatibility
	BoxASCII = BoxStyle{
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
		Horizontal:  "-",
		Vertical:    "|",
		LeftT:       "+",
		RightT:      "+",
	}
)

// ActiveBoxStyle returns rounded borders on Unicode-capable terminals and
// the ASCII fallback on dumb terminals.
func ActiveBoxStyle() BoxStyle {
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return BoxASCII
	}
	if !Iconic {
		return BoxASCII
	}
	return BoxRounded
}
