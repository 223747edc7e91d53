/*
Package domain contains the data model of the dot-map editor.

Everything here is plain data plus pure helpers. Nothing in this package performs
I/O, keeps history, or knows about pointers; those concerns live in the history
and runtime packages and in the adapters.

# Key Entities

  - Dot: a positioned, directed point. At most one dot is selected at a time.
  - Connection: an undirected edge between two distinct dots. No two connections
    share the same unordered pair of endpoints.
  - Snapshot: an immutable value holding all dots and connections. Every helper
    that changes a snapshot returns a new one and leaves the receiver untouched.
  - Interaction: the active Mode plus the in-progress Gesture. It is ephemeral and
    never stored in history.
  - Session: the persisted record of an editor (mode and current snapshot).
*/
package domain
