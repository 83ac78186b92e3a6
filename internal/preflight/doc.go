// Package preflight provides readiness checks for the directories and
// external services a render depends on.
//
// These checks run in two contexts:
//   - The CLI "render" command calls RunAll before starting the assembler.
//     A failing check stops the run before any page is classified.
//   - The CLI "deps" command prints the individual results.
//
// Network checks only run for online renders; manifest renders skip them.
package preflight
