// Package app contains the core application logic. It wires a loaded project
// into a pipeline session, the remote compiler service, snapshot storage and
// event publishing, and drives the phases through one run, decoupled from
// any specific entrypoint like a CLI or server.
package app
