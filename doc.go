// Package auraflow identifies the AuraFlow web-automation orchestrator.
//
// AuraFlow lets a user wire web applications into a directed graph of
// steps and walk that graph: each step resolves a prompt, hands it to a
// page-side automation agent through a short-lived session, and captures
// the page's reply for the next step.
package auraflow

const (
	// Name is the service name reported in logs and health responses
	Name = "auraflow"

	// Version is the service version reported in logs and health responses
	Version = "1.0.0"
)
