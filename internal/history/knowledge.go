package history

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKnowledgeEntry indicates an entry without a pattern or category.
var ErrInvalidKnowledgeEntry = errors.New("invalid knowledge entry")

// KnowledgeEntry is curated guidance for a family of failure messages.
type KnowledgeEntry struct {
	Pattern      *regexp.Regexp
	Category     string
	CommonCauses []string
	Solutions    []string
}

// KnowledgeBase is an ordered, read-only set of entries.
type KnowledgeBase struct {
	entries []KnowledgeEntry
}

// NewKnowledgeBase builds a knowledge base. Lookup returns the first match in
// the order given.
func NewKnowledgeBase(entries ...KnowledgeEntry) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{entries: make([]KnowledgeEntry, 0, len(entries))}
	for i, e := range entries {
		if e.Pattern == nil || e.Category == "" {
			return nil, fmt.Errorf("%w: entry %d needs a pattern and a category", ErrInvalidKnowledgeEntry, i)
		}
		e.CommonCauses = append([]string(nil), e.CommonCauses...)
		e.Solutions = append([]string(nil), e.Solutions...)
		kb.entries = append(kb.entries, e)
	}
	return kb, nil
}

// Lookup returns the first entry whose pattern matches message.
func (kb *KnowledgeBase) Lookup(message string) (KnowledgeEntry, bool) {
	if kb == nil {
		return KnowledgeEntry{}, false
	}
	for _, e := range kb.entries {
		if e.Pattern.MatchString(message) {
			return e, true
		}
	}
	return KnowledgeEntry{}, false
}

// Len returns the number of entries.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.entries)
}

// DefaultKnowledgeBase returns the seed entries.
func DefaultKnowledgeBase() *KnowledgeBase {
	kb, err := NewKnowledgeBase(
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)cannot (read|set) propert|(undefined|null) is not an object|nil pointer dereference`),
			Category: "null reference",
			CommonCauses: []string{
				"Value was never initialized",
				"Asynchronous data was read before it loaded",
				"A lookup returned nothing and the result was used anyway",
			},
			Solutions: []string{
				"Validate optional values where they enter the system",
				"Initialize fields and maps in constructors",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)cannot find (module|package)|module_not_found|no required module provides`),
			Category: "dependency",
			CommonCauses: []string{
				"Dependency missing from the manifest",
				"Dependencies not installed in this environment",
			},
			Solutions: []string{
				"Declare every import in the manifest and commit the lockfile",
				"Install dependencies as part of the build before running",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)is not a function|is not iterable|interface conversion|cannot convert`),
			Category: "type error",
			CommonCauses: []string{
				"A value has a different type than the code expects",
				"An API changed its return type",
			},
			Solutions: []string{
				"Check types at module boundaries",
				"Use static type checking or assertions with the two-value form",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)timeout|timed out|etimedout|deadline exceeded`),
			Category: "timeout",
			CommonCauses: []string{
				"A downstream dependency is slow",
				"The deadline is shorter than the work needs",
			},
			Solutions: []string{
				"Set explicit deadlines on every outbound call",
				"Retry idempotent calls with backoff",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)econnrefused|econnreset|connection (refused|reset)|no such host|enotfound`),
			Category: "network",
			CommonCauses: []string{
				"The target service is down or not yet listening",
				"Wrong host or port in configuration",
			},
			Solutions: []string{
				"Health-check dependencies at startup",
				"Keep service addresses in configuration, not code",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)syntaxerror|unexpected token|syntax error|unexpected end of json`),
			Category: "syntax",
			CommonCauses: []string{
				"Malformed source code",
				"Malformed input such as truncated JSON",
			},
			Solutions: []string{
				"Run a linter in CI",
				"Validate external input before parsing it",
			},
		},
		KnowledgeEntry{
			Pattern:  regexp.MustCompile(`(?i)is not defined|referenceerror|undefined: `),
			Category: "reference",
			CommonCauses: []string{
				"Identifier used before it was declared",
				"Identifier misspelled",
			},
			Solutions: []string{
				"Enable strict mode or compiler checks for undeclared names",
			},
		},
	)
	if err != nil {
		panic(fmt.Sprintf("history: default knowledge base is invalid: %v", err))
	}
	return kb
}
