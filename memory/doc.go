// Package memory gives the dispatcher a per-user recollection of earlier turns.
//
// Each completed turn (user message, assistant reply, chosen action) can be
// stored as a TurnMemory. Before the next model call the Manager embeds the
// new message, pulls the closest past turns for that user and formats them
// into a block appended to the system prompt. This is how a user who once
// sent to "mi hermana" gets the same recipient suggested later.
//
// Architecture:
//   - Store: vector storage backend (chromem-go, embedded)
//   - Embedder: text-to-vector conversion (GenAI embeddings, or the
//     deterministic mock for tests and offline runs)
//   - Manager: decides what is worth storing and how retrieved memories are rendered
//
// Memories are namespaced by user ID; a user never sees another user's turns.
package memory
