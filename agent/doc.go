// Package agent implements the turn executor of a dialog node.
//
// An Assistant wraps a model, an instruction and a tool.Toolset. Invoke
// builds a request through the flow processors, calls the model and runs the
// output past its Guards. A rejected output is retried with a synthetic
// directive appended to a private copy of the history; the conversation state
// itself is never changed by a retry. Model failures become apologies so a
// turn always produces an assistant message.
package agent
