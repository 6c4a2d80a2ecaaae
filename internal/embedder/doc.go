// Package embedder turns text into fixed-dimension vectors for chunk storage
// and query scoring.
//
// Three providers are available:
//
//   - openai: any OpenAI-compatible embeddings endpoint via go-openai. Set
//     BaseURL to target a self-hosted server.
//   - jina: the Jina AI embeddings API over HTTP.
//   - local: deterministic SHA-256-derived unit vectors. No network, no
//     semantics; useful offline and in tests.
//
// # Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  embedder.ResolveProvider("auto", openaiKey, jinaKey),
//	    APIKey:    openaiKey,
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{"autonomous drone mapping", "soil sensor network"},
//	})
//
// Func adapts an Embedder to the plain batch function the retrieval engine
// consumes.
//
// # Caching, retries and rate limiting
//
// Results are cached in an LRU keyed by model and SHA-256 of the text. API
// calls are retried with exponential backoff; 4xx responses other than 429
// fail immediately. A positive RateLimit throttles requests per second with a
// token bucket.
//
// Empty strings are valid input. An empty batch is rejected with
// ErrInvalidInput.
package embedder
