// Package reasoner derives compliance metadata for (action, reason) pairs
// from a language model.
//
// A Provider talks to one model API and may fail. Guarded wraps a Provider
// into a knowledge.Reasoner that never fails: every call is bounded by a
// timeout, is never retried, and any error (transport, authentication, rate
// limiting, timeout, malformed or empty output) yields the fallback entry.
//
// Provider adapters live in subpackages:
//   - openai: Chat Completions API
//   - generic: any OpenAI-compatible endpoint (Ollama, vLLM, LM Studio)
//   - anthropic: Messages API
//   - gemini: Gemini API via google.golang.org/genai
//
// The reasonerfactory package builds a Provider from configuration.
package reasoner
