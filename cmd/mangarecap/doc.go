// Command mangarecap renders manga chapter recap videos.
//
// `render` runs a chapter through the full assembler, either online
// (MangaDex pages, OpenRouter classification and narration) or offline from
// a YAML chapter manifest. `plan` stops before encoding and prints the
// timeline, motion plans and subtitle cues. `cache`, `config` and `deps`
// inspect the manga cache, the configuration file and the external binaries.
package main
