package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/errtrail/internal/tracking"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in     string
		want   Kind
		wantOK bool
	}{
		{"uncaught", KindUncaught, true},
		{"unhandled", KindUnhandled, true},
		{"manual", KindManual, true},
		{"MANUAL", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestErrorBundle_BreadcrumbHelpers(t *testing.T) {
	var empty ErrorBundle
	_, ok := empty.LastBreadcrumb()
	assert.False(t, ok)
	assert.False(t, empty.HasCategory(tracking.CategoryCall))

	b := ErrorBundle{Breadcrumbs: []tracking.Breadcrumb{
		{Name: "a", Category: tracking.CategoryFanout},
		{Name: "b", Category: tracking.CategoryMiddleware},
	}}
	last, ok := b.LastBreadcrumb()
	assert.True(t, ok)
	assert.Equal(t, "b", last.Name)
	assert.True(t, b.HasCategory(tracking.CategoryFanout))
	assert.False(t, b.HasCategory(tracking.CategoryTimer))
}

func TestCauseFixValidate(t *testing.T) {
	assert.NoError(t, Cause{Description: "ok", Confidence: 1}.Validate())
	assert.ErrorIs(t, Cause{Description: "bad", Confidence: 1.2}.Validate(), ErrConfidenceOutOfRange)
	assert.NoError(t, Fix{Description: "ok", Confidence: 0}.Validate())
	assert.ErrorIs(t, Fix{Description: "bad", Confidence: -0.1}.Validate(), ErrConfidenceOutOfRange)
}

func TestStackFrame_String(t *testing.T) {
	assert.Equal(t, "main.run (/app/main.go:12)", StackFrame{Function: "main.run", File: "/app/main.go", Line: 12}.String())
	assert.Equal(t, "<native> (unknown)", StackFrame{Function: "<native>", File: "unknown", Native: true}.String())
}
