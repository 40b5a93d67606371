package history

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

// genericExplanations maps well-known message fragments to a plain reading.
var genericExplanations = []struct {
	fragments []string
	text      string
}{
	{[]string{"cannot find module", "cannot find package", "module_not_found"}, "A required module could not be found."},
	{[]string{"cannot read propert", "cannot set propert", "is not an object", "nil pointer dereference"}, "The code accessed a property of a value that does not exist."},
	{[]string{"is not a function"}, "The code called something that is not a function."},
	{[]string{"syntax", "unexpected token"}, "The code or its input could not be parsed."},
	{[]string{"is not defined", "referenceerror"}, "The code referenced a name that was never declared."},
}

func genericExplanation(message string) string {
	lower := strings.ToLower(message)
	for _, g := range genericExplanations {
		for _, f := range g.fragments {
			if strings.Contains(lower, f) {
				return g.text
			}
		}
	}
	return ""
}

// explain assembles the explanation from the knowledge entry, the message,
// the top cause, the top two fixes and the similar-count.
func explain(message string, a diag.Analysis, kb *KnowledgeEntry, similar int) string {
	var parts []string

	if a.Explanation != "" {
		parts = append(parts, a.Explanation)
	}
	if kb != nil {
		s := fmt.Sprintf("This looks like a %s problem.", kb.Category)
		if len(kb.CommonCauses) > 0 {
			s += " Common causes: " + strings.Join(kb.CommonCauses, "; ") + "."
		}
		parts = append(parts, s)
	}
	if g := genericExplanation(message); g != "" {
		parts = append(parts, g)
	}
	if len(a.Causes) > 0 {
		parts = append(parts, "Most likely cause: "+a.Causes[0].Description+".")
	}
	if len(a.Fixes) > 0 {
		n := min(2, len(a.Fixes))
		fixes := make([]string, n)
		for i := range fixes {
			fixes[i] = a.Fixes[i].Description
		}
		parts = append(parts, "Suggested fixes: "+strings.Join(fixes, "; ")+".")
	}
	switch {
	case similar == 1:
		parts = append(parts, "1 similar failure was seen recently.")
	case similar > 1:
		parts = append(parts, fmt.Sprintf("%d similar failures were seen recently.", similar))
	}

	return strings.Join(parts, " ")
}

var kindTips = map[diag.Kind][]string{
	diag.KindUncaught: {
		"Recover panics at goroutine and request boundaries and report them",
	},
	diag.KindUnhandled: {
		"Always observe the result of deferred work",
		"Use an errgroup when fanning out so the first error reaches the caller",
	},
	diag.KindManual: {
		"Add a regression test for this failure path",
	},
}

// mergeTips concatenates tip lists, dropping repeats and keeping first order.
func mergeTips(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, tip := range list {
			if _, dup := seen[tip]; dup {
				continue
			}
			seen[tip] = struct{}{}
			out = append(out, tip)
		}
	}
	return out
}
