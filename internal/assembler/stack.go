package assembler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/errtrail/internal/diag"
)

// MaxFrames bounds the frames kept from one stack.
const MaxFrames = 50

var (
	// at fn (file:line:col), at file:line:col, at fn (native)
	atFrameRe = regexp.MustCompile(`^\s*at\s+(?:(.+?)\s+\((.+?)(?::(\d+))?(?::(\d+))?\)|(.+?)(?::(\d+))?(?::(\d+))?)\s*$`)

	// \t/path/file.go:42 +0x1d
	goLocationRe = regexp.MustCompile(`^\s+(.+\.go):(\d+)(?:\s+\+0x[0-9a-fA-F]+)?\s*$`)

	goroutineSuffixRe = regexp.MustCompile(`\s+in goroutine \d+$`)
)

// NativeFrame stands in for a stack that could not be parsed.
var NativeFrame = diag.StackFrame{Function: "<native>", File: "unknown", Native: true}

// ParseStack decomposes raw stack text into frames. It understands Go panic
// traces and "at fn (file:line:col)" lines and skips everything else. Input
// with text but no recognisable frame yields a single NativeFrame; empty
// input yields nil.
func ParseStack(raw string) []diag.StackFrame {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var frames []diag.StackFrame

	for i := 0; i < len(lines) && len(frames) < MaxFrames; i++ {
		line := lines[i]

		if f, ok := parseAtFrame(line); ok {
			frames = append(frames, f)
			continue
		}

		// Go frames are a function line followed by an indented location.
		if i+1 < len(lines) && isGoFunctionLine(line) {
			if m := goLocationRe.FindStringSubmatch(lines[i+1]); m != nil {
				frames = append(frames, diag.StackFrame{
					Function: goFunctionName(line),
					File:     m[1],
					Line:     atoi(m[2]),
				})
				i++
			}
		}
	}

	if len(frames) == 0 {
		return []diag.StackFrame{NativeFrame}
	}
	return frames
}

func parseAtFrame(line string) (diag.StackFrame, bool) {
	m := atFrameRe.FindStringSubmatch(line)
	if m == nil {
		return diag.StackFrame{}, false
	}

	if m[1] != "" {
		if m[2] == "native" {
			return diag.StackFrame{Function: m[1], File: "native", Native: true}, true
		}
		if m[3] == "" {
			return diag.StackFrame{}, false
		}
		return diag.StackFrame{Function: m[1], File: m[2], Line: atoi(m[3]), Column: atoi(m[4])}, true
	}

	if m[6] == "" {
		return diag.StackFrame{}, false
	}
	return diag.StackFrame{Function: "<anonymous>", File: m[5], Line: atoi(m[6]), Column: atoi(m[7])}, true
}

func isGoFunctionLine(line string) bool {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return false
	}
	return strings.HasSuffix(line, ")") || strings.HasPrefix(line, "created by ")
}

// goFunctionName strips the "created by" prefix, the goroutine suffix and
// the trailing argument list from a Go trace function line.
func goFunctionName(line string) string {
	name := strings.TrimPrefix(line, "created by ")
	name = goroutineSuffixRe.ReplaceAllString(name, "")
	if !strings.HasSuffix(name, ")") {
		return name
	}

	depth := 0
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				if i == 0 {
					return name
				}
				return name[:i]
			}
		}
	}
	return name
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
