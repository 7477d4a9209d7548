// Package server implements the HTTP API for the session broker and
// the workflow catalog.
package server
