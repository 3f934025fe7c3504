// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle: load job files, validate
// the graph, schedule, then report. It is decoupled from any specific
// entrypoint like a CLI or server.
package app
