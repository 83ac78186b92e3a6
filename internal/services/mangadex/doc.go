// Package mangadex fetches chapter pages and manga metadata from the MangaDex
// API.
//
// Pages are resolved through the at-home server endpoint and downloaded in
// reading order, paced by a token bucket so a long chapter stays under the
// at-home rate limit. Manga metadata seeds the first MangaContext stored for
// a series.
package mangadex
