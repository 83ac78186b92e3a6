// Package motion plans the Ken Burns pan and zoom for each displayed page.
//
// Pages are fitted into the output frame with padding bars, never cropped.
// The fitted page is shrunk by the zoom factor inside the padded canvas, so a
// viewport that starts at the full canvas and ends at canvas/zoom always
// keeps the whole page in view. Zoom and pan are drawn from a generator
// seeded by the chapter seed and page index, so a re-run yields identical
// plans.
package motion
