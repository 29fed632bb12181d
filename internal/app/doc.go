// Package app contains the core application logic. It wires the session
// storage, progress store, lifecycle bus, definition loader and remote feed
// together and runs them, decoupled from any specific entrypoint like a CLI.
package app
