// Package memory holds the conversation of one agent run.
//
// Model:
//   - Messages are text only (role + content). Tool calls are folded back in as
//     user messages, so the transcript stays provider-neutral.
//   - The system message appears exactly once and always first.
//   - A Conversation is append-only and owned by a single run.
package memory
