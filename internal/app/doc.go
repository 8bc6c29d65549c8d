// Package app contains the application logic behind each command: it
// resolves the experiment configuration, builds the typed job and hands it
// to an orchestrator. It is decoupled from any specific entrypoint.
package app
