// Package manifest loads YAML chapter manifests for offline renders.
//
// A manifest lists page images in reading order, optional classifier
// verdicts, a narration script mapping segments to page indices, and optional
// narration audio and music. The package exposes the manifest as the page
// source, classifier and narrator the assembler expects, so a chapter can be
// rendered without network collaborators.
package manifest
