// Package memory provides the in-memory MemoryStore implementation: typed
// long-lived records with a per-type index, cosine-similarity retrieval over
// deterministic hashed embeddings, and bounded context compaction per handler.
package memory
