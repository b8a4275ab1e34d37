// Package pipeline runs the classification stages over one batch of
// records:
//
//	rule application -> data segregation -> knowledge base -> classification -> report
//
// A Pipeline is safe for concurrent use. Concurrent runs each own their
// batch and share the knowledge base.
package pipeline
