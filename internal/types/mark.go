package types

import "time"

// MarkShape is an echarts symbol name.
type MarkShape string

const (
	MarkShapeCircle   MarkShape = "circle"
	MarkShapeSquare   MarkShape = "rect"
	MarkShapeTriangle MarkShape = "triangle"
	MarkShapePin      MarkShape = "pin"
)

type MarkColor string

const (
	MarkColorRed   MarkColor = "#ef5350"
	MarkColorGreen MarkColor = "#26a69a"
	MarkColorBlue  MarkColor = "#0b84a5"
)

// Mark annotates one point of a price chart, such as a fill.
type Mark struct {
	Time  time.Time
	Price float64
	Color MarkColor
	Shape MarkShape
	// Title groups marks into one legend entry.
	Title   string
	Message string
}
