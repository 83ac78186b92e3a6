// Package ffprobe provides a typed wrapper around ffprobe JSON output and the
// media measurements the assembler needs: narration audio length and page
// image dimensions.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: measures audio durations and image sizes
//
// Image sizes are read from the file header when Go can decode the format
// and fall back to ffprobe otherwise.
package ffprobe
