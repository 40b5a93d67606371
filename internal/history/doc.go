// Package history refines a classification with what the process has seen
// before.
//
// The Index keeps a bounded, oldest-evicted record of recent failures. Each
// call to Enhance compares the new failure's message against earlier
// failures with the same name, looks it up in a curated knowledge base, and
// returns the analysis with an explanation, prevention tips, a similar-count
// and a raised confidence:
//
//	confidence = min(1, base + min(0.05*similar, 0.15) + 0.10 if known)
//
// The constants come from config.HistoryConfig. Enhance only adds to the
// analysis it is given; it never lowers confidence or drops causes and fixes.
//
// Similarity is word-set overlap:
//
//	|A ∩ B| / max(|A|, |B|)
//
// over lower-cased, whitespace-separated words. Two empty messages are
// identical (1.0); an empty and a non-empty message share nothing (0.0).
package history
