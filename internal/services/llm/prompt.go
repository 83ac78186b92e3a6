package llm

// ClassificationPrompt instructs the vision model to label one page and, for
// story pages, describe it for the narrator.
const ClassificationPrompt = `You label manga pages for a chapter recap video.

A page is "meta" when it is a magazine cover, a title or credits page, a translator
note, a "support the official release" disclaimer, an author note or announcement,
or a chapter title page with no story panels.

A page is "content" when it shows story panels: characters, action, dialogue or
story progression. A dramatic single-panel page is content.

For content pages write a description of what happens: 2-3 sentences with the
specific dialogue, names, numbers and actions shown. Never generalize a detail away.
For meta pages leave the description empty.

Also give the page's emotional tone as one word: tense, action, sad, comedic,
romantic, dark, happy or calm.

You must respond ONLY with a JSON object like:
{"label": "content", "description": "...", "mood": "tense"}`

// NarrationPrompt instructs the text model to script a chapter from the
// page descriptions.
const NarrationPrompt = `You write narration for a manga chapter recap video. Viewers see each page
while hearing your narration.

Group consecutive pages into narration segments of 1-2 sentences each. Every
segment lists the page indices it narrates, in reading order; pages may be shared
by adjacent segments and segments never go back to an earlier page.

Your narration should:
- include the specific details that make each page memorable (exact amounts,
  specific actions, what was said)
- use character names, never "a man" or "the character"
- match the tone of what is shown

Also write a 2-3 sentence summary of the chapter for future recaps.

You must respond ONLY with a JSON object like:
{"segments": [{"text": "...", "pages": [3, 4]}], "summary": "..."}`
