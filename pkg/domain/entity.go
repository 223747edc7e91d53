package domain

import (
	"fmt"
	"strings"

	"github.com/aretw0/dotmap/pkg/geometry"
)

// Dot is a positioned, directed point on the canvas.
type Dot struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`

	// Direction is a heading in whole degrees within [0, 359].
	Direction int  `json:"direction"`
	Selected  bool `json:"selected"`

	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
}

// Position returns the dot center.
func (d Dot) Position() geometry.Point {
	return geometry.Pt(d.X, d.Y)
}

// ConnectionStyle is the stroke used to draw a connection.
type ConnectionStyle string

const (
	StyleSolid  ConnectionStyle = "solid"
	StyleDashed ConnectionStyle = "dashed"
	StyleDotted ConnectionStyle = "dotted"
)

// ParseConnectionStyle converts a name into a ConnectionStyle. An empty name means solid.
func ParseConnectionStyle(s string) (ConnectionStyle, error) {
	switch ConnectionStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleSolid:
		return StyleSolid, nil
	case StyleDashed:
		return StyleDashed, nil
	case StyleDotted:
		return StyleDotted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}

// Connection is an undirected edge between two distinct dots.
// Source and target only record the order in which the user picked them.
type Connection struct {
	ID       string          `json:"id"`
	SourceID string          `json:"source_id"`
	TargetID string          `json:"target_id"`
	Label    string          `json:"label,omitempty"`
	Style    ConnectionStyle `json:"style,omitempty"`
	Color    string          `json:"color,omitempty"`
}

// Joins reports whether the connection links a and b, in either order.
func (c Connection) Joins(a, b string) bool {
	return (c.SourceID == a && c.TargetID == b) || (c.SourceID == b && c.TargetID == a)
}

// Touches reports whether dotID is one of the endpoints.
func (c Connection) Touches(dotID string) bool {
	return c.SourceID == dotID || c.TargetID == dotID
}

// pairKey returns an order-independent key for the endpoints.
func (c Connection) pairKey() string {
	a, b := c.SourceID, c.TargetID
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
