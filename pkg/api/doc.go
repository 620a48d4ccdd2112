// Package api defines the wire types of the reflection API
//
// This package contains the shared types exchanged between the reflection
// server, its clients, and the trace and flow-state stores, including action
// descriptors, run envelopes, status errors, and pagination messages
package api
