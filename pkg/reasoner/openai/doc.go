// Package openai derives compliance entries through the OpenAI Chat
// Completions API.
//
// The wire types are exported for reuse by adapters of OpenAI-compatible
// servers.
package openai
