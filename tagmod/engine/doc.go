// Moderation engine which checks images linked or attached in chat messages against a banned-tag policy, and removes offending messages.
//
// The engine does not talk to the chat platform or tag service directly: those are provided as the Platform and TagLookup interfaces. Each inbound message is processed independently; the only shared state is the read-only policy plus a couple of concurrency-safe in-memory caches.
package engine
