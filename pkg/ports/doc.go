/*
Package ports defines the driven ports (interfaces) of the dot-map editor.

These interfaces decouple the editor and its session layer from concrete
implementations, allowing the same core to run against several storage
backends and identifier schemes.

# Key Interfaces

  - Editor: the operations a presentation layer may call on an editor.
  - SessionStore: persists and loads the current snapshot of a session.
  - DistributedLocker: coordinates concurrent access to a session across replicas.
  - IDGenerator: mints identifiers for new dots and connections.
*/
package ports
