// Package knowledge resolves (action, reason) pairs to compliance metadata.
//
// A KnowledgeBase consults a Store first. On a miss in full mode it asks a
// Reasoner and persists the answer, so each pair is reasoned about at most
// once for the lifetime of the store. In quick mode a miss resolves to the
// fallback entry without calling the Reasoner or writing to the store.
//
// Concurrent resolutions of the same pair, within one run or across runs
// sharing a KnowledgeBase, collapse into a single Reasoner call.
//
// Basic usage:
//
//	kb, err := knowledge.New(store, reasoner, knowledge.WithConcurrency(4))
//	if err != nil {
//		return err
//	}
//	res := kb.Resolve(ctx, pairs, knowledge.ModeFull)
//	entry, _ := res.Entry(key)
package knowledge
