package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/dotmap/pkg/domain"
)

// Overlay contains transient interaction data to highlight on the graph.
type Overlay struct {
	// Anchor is the dot a pending connection starts from.
	Anchor string
	// Dragging is the dot being rotated.
	Dragging string
}

// OverlayFrom extracts the highlighted dots from a gesture.
func OverlayFrom(g domain.Gesture) *Overlay {
	if g.IsIdle() {
		return nil
	}
	o := &Overlay{Anchor: g.ConnectionStart}
	if g.Drag != nil {
		o.Dragging = g.Drag.DotID
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a snapshot.
// Dots are circles labelled with their label (or id) and heading.
// Connection styles map to Mermaid strokes:
// - solid: -->
// - dashed: -.->
// - dotted: -.-> plus a short dash array
// The selected dot gets the "selected" class; overlay dots get "anchor" or
// "dragging".
func GenerateMermaid(snap domain.Snapshot, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, d := range snap.Dots {
		name := d.Label
		if name == "" {
			name = d.ID
		}
		fmt.Fprintf(&sb, "    %s((\"%s<br/>%d°\"))\n", sanitizeMermaidID(d.ID), escapeLabel(name), d.Direction)
	}

	var linkStyles []string
	for i, c := range snap.Connections {
		from, to := sanitizeMermaidID(c.SourceID), sanitizeMermaidID(c.TargetID)
		dashed := c.Style == domain.StyleDashed || c.Style == domain.StyleDotted

		var arrow string
		switch {
		case c.Label != "" && dashed:
			arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(c.Label))
		case c.Label != "":
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(c.Label))
		case dashed:
			arrow = "-.->"
		default:
			arrow = "-->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)

		var style []string
		if c.Style == domain.StyleDotted {
			style = append(style, "stroke-dasharray:2 2")
		}
		if c.Color != "" {
			style = append(style, "stroke:"+c.Color)
		}
		if len(style) > 0 {
			linkStyles = append(linkStyles, fmt.Sprintf("    linkStyle %d %s;\n", i, strings.Join(style, ",")))
		}
	}

	for _, ls := range linkStyles {
		sb.WriteString(ls)
	}
	for _, d := range snap.Dots {
		if d.Color != "" {
			fmt.Fprintf(&sb, "    style %s fill:%s;\n", sanitizeMermaidID(d.ID), d.Color)
		}
	}

	selected, hasSelection := snap.Selected()
	if !hasSelection && overlay == nil {
		return sb.String()
	}

	sb.WriteString("\n    %% Interaction Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	if hasSelection {
		fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(selected.ID))
	}
	if overlay != nil {
		sb.WriteString("    classDef anchor fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef dragging fill:#fce4ec,stroke:#c2185b,stroke-width:2px,color:#000;\n")
		if _, ok := snap.Dot(overlay.Anchor); ok {
			fmt.Fprintf(&sb, "    class %s anchor;\n", sanitizeMermaidID(overlay.Anchor))
		}
		if _, ok := snap.Dot(overlay.Dragging); ok {
			fmt.Fprintf(&sb, "    class %s dragging;\n", sanitizeMermaidID(overlay.Dragging))
		}
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
