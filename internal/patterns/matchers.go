package patterns

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

// AsyncTerms are message words that point at deferred or concurrent work.
var AsyncTerms = []string{"promise", "await", "async", "rejection", "goroutine", "channel", "deferred"}

// MessageMatches matches the failure message against re.
func MessageMatches(re *regexp.Regexp) Matcher {
	return func(b *diag.ErrorBundle) bool {
		return re.MatchString(b.Failure.Message)
	}
}

// MessageContains matches when the message contains any of substrs,
// ignoring case.
func MessageContains(substrs ...string) Matcher {
	lower := make([]string, len(substrs))
	for i, s := range substrs {
		lower[i] = strings.ToLower(s)
	}
	return func(b *diag.ErrorBundle) bool {
		msg := strings.ToLower(b.Failure.Message)
		for _, s := range lower {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// NameIs matches the failure name exactly.
func NameIs(names ...string) Matcher {
	return func(b *diag.ErrorBundle) bool {
		for _, n := range names {
			if b.Failure.Name == n {
				return true
			}
		}
		return false
	}
}

// KindIs matches the failure kind.
func KindIs(k diag.Kind) Matcher {
	return func(b *diag.ErrorBundle) bool {
		return b.Failure.Kind == k
	}
}

// HasBreadcrumb matches when any breadcrumb has category c.
func HasBreadcrumb(c tracking.Category) Matcher {
	return func(b *diag.ErrorBundle) bool {
		return b.HasCategory(c)
	}
}

// LastBreadcrumbIs matches when the most recent breadcrumb has category c.
func LastBreadcrumbIs(c tracking.Category) Matcher {
	return func(b *diag.ErrorBundle) bool {
		last, ok := b.LastBreadcrumb()
		return ok && last.Category == c
	}
}

// HasAsyncTerm matches when the message mentions any of AsyncTerms.
func HasAsyncTerm() Matcher {
	return MessageContains(AsyncTerms...)
}

// All matches when every matcher matches.
func All(ms ...Matcher) Matcher {
	return func(b *diag.ErrorBundle) bool {
		for _, m := range ms {
			if !m(b) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one matcher matches.
func Any(ms ...Matcher) Matcher {
	return func(b *diag.ErrorBundle) bool {
		for _, m := range ms {
			if m(b) {
				return true
			}
		}
		return false
	}
}
