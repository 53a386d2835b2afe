package callsite

import (
	"bufio"
	"bytes"
	"runtime/debug"
	"strconv"
	"strings"
)

// Frame is one parsed entry of a textual goroutine backtrace.
type Frame struct {
	Function string
	File     string
	Line     int
}

// StackResolver resolves call sites by parsing a textual backtrace in the
// runtime/debug.Stack format. It is slower than RuntimeResolver and exists as
// the swappable parsing strategy.
type StackResolver struct {
	internal   *InternalFrames
	normalizer Normalizer
	capture    func() []byte
	counters
}

// WithCapture replaces debug.Stack as the source of the backtrace.
func WithCapture(capture func() []byte) Option {
	return func(o *options) {
		o.capture = capture
	}
}

// NewStackResolver creates a resolver that parses captured backtraces.
func NewStackResolver(opts ...Option) *StackResolver {
	o := buildOptions(opts)
	capture := o.capture
	if capture == nil {
		capture = debug.Stack
	}
	return &StackResolver{
		internal:   o.internal,
		normalizer: o.normalizer,
		capture:    capture,
	}
}

// Resolve parses the captured backtrace and applies the same skip rules as
// RuntimeResolver.
func (r *StackResolver) Resolve(skip int) (origin Origin) {
	defer func() {
		if rec := recover(); rec != nil {
			origin = r.failure()
		}
	}()

	frames := ParseGoStack(r.capture())
	for _, frame := range frames {
		if r.internal.Contains(frame.Function) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if o, ok := frameOrigin(r.normalizer, frame.Function, frame.File, frame.Line); ok {
			return r.success(o)
		}
		return r.failure()
	}

	return r.failure()
}

// Stats returns resolution counters.
func (r *StackResolver) Stats() Stats {
	return r.snapshot()
}

// ParseGoStack parses a goroutine backtrace:
//
//	goroutine 1 [running]:
//	main.handleSubmit(0xc000012345)
//		/app/src/forms/register.go:42 +0x1d
//
// Lines that do not fit the function/location pairing are skipped.
func ParseGoStack(trace []byte) []Frame {
	var frames []Frame
	var pending string

	scanner := bufio.NewScanner(bytes.NewReader(trace))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "goroutine ") {
			pending = ""
			continue
		}

		if strings.HasPrefix(line, "\t") {
			if pending == "" {
				continue
			}
			file, lineNo, ok := parseLocationLine(line)
			if ok {
				frames = append(frames, Frame{Function: pending, File: file, Line: lineNo})
			}
			pending = ""
			continue
		}

		pending = parseFunctionLine(line)
	}

	return frames
}

// parseFunctionLine strips the argument list and "created by" decorations.
func parseFunctionLine(line string) string {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "created by "); ok {
		if i := strings.Index(rest, " in goroutine "); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}

	if !strings.HasSuffix(line, ")") {
		return line
	}

	depth := 0
	for i := len(line) - 1; i >= 0; i-- {
		switch line[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return line[:i]
			}
		}
	}
	return line
}

// parseLocationLine parses "\t/path/file.go:42 +0x1d".
func parseLocationLine(line string) (string, int, bool) {
	line = strings.TrimSpace(line)
	if i := strings.LastIndex(line, " +0x"); i >= 0 {
		line = line[:i]
	}

	colon := strings.LastIndex(line, ":")
	if colon <= 0 {
		return "", 0, false
	}

	n, err := strconv.Atoi(line[colon+1:])
	if err != nil {
		return "", 0, false
	}
	return line[:colon], n, true
}
