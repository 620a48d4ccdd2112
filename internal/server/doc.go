// Package server implements the reflection HTTP API
//
// This package provides the endpoints a developer tool uses to list and run
// registered actions, and to read trace and flow-state records from the
// stores of each configured environment
package server
