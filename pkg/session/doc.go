/*
Package session implements session management and persistence orchestration.

It keeps one live Editor per session so undo history survives between
requests, serializes operations per session (optionally across replicas with a
distributed lock), and writes the current snapshot through to a SessionStore
after every change.
*/
package session
