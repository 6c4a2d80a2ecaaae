// Package chunker divides capstone document text into overlapping word windows
// for embedding and search.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.ChunkText(projectID, &sectionID, section.Content, next)
//	for _, chunk := range chunks {
//	    fmt.Printf("chunk %d: %d tokens\n", chunk.Index, chunk.TokenCount)
//	}
//
// # Windowing
//
// Text is split on whitespace. Each window holds up to 200 words and shares
// its last 40 words with the next window, so a sentence that straddles a
// boundary is fully present in at least one chunk. The last window may be
// shorter. Custom sizes are available through NewWithWindow.
//
// The abstract is chunked with a nil section id; section text carries the id
// of the section row it came from.
//
// # Content Hashing
//
// Each chunk carries a SHA-256 hash of its content and a chars/4 token
// estimate.
package chunker
