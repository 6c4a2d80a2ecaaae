// Package summarizer writes a cited overview of the passages retrieved for a
// query using an LLM.
//
// Up to ten passages are numbered and sent to the model together with an
// instruction to cite them as [1], [2], .... The model answers in Markdown,
// which is also rendered to HTML with goldmark. Each Summary lists the sources
// in citation order.
//
// Two generators are provided: OpenAIGenerator (chat completions through
// go-openai, also usable with compatible servers) and OllamaGenerator
// (Ollama's /api/generate endpoint).
package summarizer
