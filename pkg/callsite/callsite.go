// Package callsite derives the origin of a log call (module, file, function,
// line) without the caller passing it explicitly.
//
// Resolution never fails loudly: an unusable stack degrades to Unknown() and
// is counted in the resolver's Stats.
package callsite

import (
	"sync/atomic"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// Origin is the resolved identity of a call site.
type Origin struct {
	Module   string
	FilePath *string
	Function string
	Line     *int
}

// Unknown is the origin reported when no frame can be resolved.
func Unknown() Origin {
	return Origin{
		Module:   logentry.UnknownValue,
		Function: logentry.UnknownValue,
	}
}

// Resolver resolves the origin of the current call. skip asks the resolver to
// ignore that many additional non-internal frames (for caller-side wrappers).
type Resolver interface {
	Resolve(skip int) Origin
}

// Stats reports how resolutions went.
type Stats struct {
	Resolved uint64
	Failed   uint64
}

// StatsProvider is implemented by resolvers that track their outcomes.
type StatsProvider interface {
	Stats() Stats
}

type counters struct {
	resolved atomic.Uint64
	failed   atomic.Uint64
}

func (c *counters) success(o Origin) Origin {
	c.resolved.Add(1)
	return o
}

func (c *counters) failure() Origin {
	c.failed.Add(1)
	return Unknown()
}

func (c *counters) snapshot() Stats {
	return Stats{
		Resolved: c.resolved.Load(),
		Failed:   c.failed.Load(),
	}
}

// frameOrigin turns a raw frame into an Origin. It reports false when the
// frame carries no usable location.
func frameOrigin(n Normalizer, function, file string, line int) (Origin, bool) {
	if file == "" {
		return Origin{}, false
	}

	loc := n.NormalizeFrame(function, file)
	origin := Origin{
		Module:   loc.Module,
		FilePath: loc.FilePath,
		Function: ShortFunction(function),
	}
	if line > 0 && !loc.Bundled {
		origin.Line = logentry.IntPtr(line)
	}
	return origin, true
}
