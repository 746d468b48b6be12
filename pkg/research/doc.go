// Package research implements the search-augmented answer loop: a first
// completion that may request web searches, a search-and-summarize pass over
// the results, and one final completion that must answer in plain text.
//
// Per user turn the loop moves through
//
//	AwaitingFirstResponse -> Done (plain answer)
//	AwaitingFirstResponse -> Searching -> Summarizing -> AwaitingFinalResponse -> Done
//
// The final completion is sent without the tool schema, so a turn never
// searches twice.
package research
