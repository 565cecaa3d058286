// Package classify turns free text into labels and structured summaries.
//
// Everything here is pure string matching against the wording the domain
// agents are known to produce: task descriptions become short activity
// labels, raw agent results become a summary line, detail fragments, an
// optional visual record and patient context updates. Nothing in this package
// touches sessions or traces, so rules can be changed and tested in isolation.
package classify
