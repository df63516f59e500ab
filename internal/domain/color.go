package domain

import "fmt"

// Color tags a route for physical separation at the depot.
type Color struct {
	Name  string
	Hex   string
	Cycle int
}

// Label is the human-readable name used in scan responses. Colors reused past the
// palette size carry their cycle number so labels stay unique within a session.
func (c Color) Label() string {
	if c.Cycle == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %d", c.Name, c.Cycle+1)
}

// Palette is the fixed, ordered route color list.
var Palette = []Color{
	{Name: "RED", Hex: "#E53935"},
	{Name: "GREEN", Hex: "#43A047"},
	{Name: "BLUE", Hex: "#1E88E5"},
	{Name: "YELLOW", Hex: "#FDD835"},
	{Name: "PINK", Hex: "#EC407A"},
	{Name: "PURPLE", Hex: "#8E24AA"},
	{Name: "ORANGE", Hex: "#FB8C00"},
	{Name: "CYAN", Hex: "#00ACC1"},
	{Name: "LIME", Hex: "#C0CA33"},
	{Name: "MAGENTA", Hex: "#D81B60"},
}

// ColorFor assigns palette colors round-robin by route index.
func ColorFor(i int) Color {
	c := Palette[i%len(Palette)]
	c.Cycle = i / len(Palette)
	return c
}
