// Package embedder turns seeker profiles and job postings into 384-dimension
// unit vectors.
//
// Providers (OpenAI, Jina, Ollama, Gemini and an offline hashed bag-of-words
// model) implement Embedder and are selected with New. Remote providers share
// an LRU cache keyed by the SHA-256 of the input text and retry transient
// failures with exponential backoff.
//
// # Canonical Text
//
// SeekerText and JobText build the text that is embedded. The hash of that
// text is stored next to the vector so unchanged entities are not re-embedded:
//
//	svc := embedder.NewService(provider, tables, logger)
//	emb, err := svc.EmbedJob(ctx, job)
//	if err != nil {
//	    return err
//	}
//	if emb == nil {
//	    // nothing to embed
//	}
//
// A nil embedding with a nil error is the normal result for an entity with no
// text, and callers degrade to their no-embedding path.
package embedder
