// Package builtin provides the demo toolset served by the toolhost command:
// echo, clock_now and a small in-memory notes store with list, put and
// delete tools, a notes://all resource and a summarize_notes prompt.
//
// The read tools carry readOnlyHint, so in read-only mode only echo,
// clock_now and note_list can be enabled.
package builtin
