// Package llm provides an OpenRouter chat client plus the page classifier and
// chapter narrator built on it.
//
// # Classification
//
// Classifier sends one page image (as a data URL) with ClassificationPrompt
// and expects {"label", "description", "mood"}. Unknown labels and content
// pages without a description are reported as services.ErrClassification.
//
// # Narration
//
// Narrator sends the content page descriptions, the manga context and the
// previous chapter summaries with NarrationPrompt and expects
// {"segments": [{"text", "pages"}], "summary"}. Failures are reported as
// services.ErrNarrationSynthesis.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.CompleteVisionJSON: the same with an attached image.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package llm
