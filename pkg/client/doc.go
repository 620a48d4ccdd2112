// Package client is a Go client for the reflection API
//
// Streamed invocations carry no explicit end marker: every line is a chunk
// except the last one written before the response closes, which is either
// the result envelope or a Status describing a failure
package client
