// Package action defines the callable units exposed by the reflection API
//
// An action has a name, a description, optional input and output schemas,
// and a function taking JSON input to JSON output. Streaming actions emit
// intermediate chunks through a callback, and Stream turns such a run into
// a lazy sequence. Flows are actions that also persist a flow-state record
// describing each run
package action
