/*
Package dotmap is the core of a small diagram editor: users place directed
points ("dots") on a canvas, connect them with undirected edges, and adjust
their headings, with full undo and redo.

The package has no notion of pixels or widgets. A presentation layer (a
canvas, a terminal, an HTTP client) translates its input into canvas
coordinates and calls the Editor; after every call it re-reads
CurrentSnapshot and redraws.

# Concept

The Editor couples two pieces:

  - an interaction state machine that interprets clicks and drags according
    to the active Mode (place, connect, adjust) and any gesture in progress;
  - a bounded linear history in which every user action commits exactly one
    new snapshot.

Gestures (a pending connection anchor, an active drag) are ephemeral. They
are reset on every mode change and never enter history.

# Usage

	ed := dotmap.New()

	ed.Click(10, 10)   // place mode: adds a selected dot
	ed.Click(120, 40)  // adds a second dot and selects it

	ed.SetMode(domain.ModeConnect)
	snap := ed.CurrentSnapshot()
	a, b := snap.Dots[0], snap.Dots[1]
	ed.Click(a.X, a.Y) // arm the connection
	ed.Click(b.X, b.Y) // link a and b

	ed.Undo()          // the connection is gone
	ed.Redo()          // and back

# Persistence

The core never touches storage. Session adapters persist Editor.Session and
rebuild an editor with New and Restore; see the session and adapters packages.
*/
package dotmap
