// Package mangacache persists manga context summaries and chapter summaries
// so repeated analysis is cheap and narration can refer back to earlier
// chapters.
//
// Two durable backends implement Store: FileStore keeps one JSON document per
// record under <dir>/<manga_id>/, and SQLiteStore keeps both record kinds in a
// single database. Open selects one from configuration and fronts it with
// Memo, an in-memory read-through layer. Writers are serialized per manga_id
// inside the process and, for FileStore, across processes with a file lock.
//
// Every storage failure is wrapped in services.ErrCacheUnavailable so callers
// can degrade to running without context instead of aborting.
package mangacache
