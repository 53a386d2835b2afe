package callsite

import "github.com/JailtonJunior94/logkit/pkg/logentry"

// StaticResolver returns a fixed origin, for call sites whose identity is
// known at build time (generated code, tests).
type StaticResolver struct {
	origin Origin
}

// NewStaticResolver creates a resolver for the given location. An empty file
// yields a null file path and a non-positive line a null line number.
func NewStaticResolver(module, file, function string, line int) *StaticResolver {
	origin := Origin{
		Module:   module,
		Function: function,
	}
	if origin.Module == "" {
		origin.Module = logentry.UnknownValue
	}
	if origin.Function == "" {
		origin.Function = logentry.UnknownValue
	}
	if file != "" {
		origin.FilePath = logentry.StringPtr(file)
	}
	if line > 0 {
		origin.Line = logentry.IntPtr(line)
	}
	return &StaticResolver{origin: origin}
}

// Resolve ignores skip and returns a copy of the configured origin.
func (r *StaticResolver) Resolve(int) Origin {
	o := r.origin
	if o.FilePath != nil {
		o.FilePath = logentry.StringPtr(*o.FilePath)
	}
	if o.Line != nil {
		o.Line = logentry.IntPtr(*o.Line)
	}
	return o
}
