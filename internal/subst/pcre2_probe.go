package subst

import (
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

// pcre2LibraryNames are the shared-library names probed per platform,
// in order.
var pcre2LibraryNames = map[string][]string{
	"linux":  {"libpcre2-8.so.0", "libpcre2-8.so"},
	"darwin": {"libpcre2-8.0.dylib", "libpcre2-8.dylib"},
}

var (
	pcre2Once      sync.Once
	pcre2Available bool
)

// PCRE2Available probes the host for a loadable libpcre2-8 using
// purego's Dlopen, caching the result. It never links against PCRE2 at
// build time; the probe is informational only; pureGoRuleSet is always
// used regardless of the result, since this package never binds
// PCRE2's actual match functions. A future PCRE2-backed RuleSet would
// gate on this before attempting purego.RegisterLibFunc.
func PCRE2Available() bool {
	pcre2Once.Do(func() {
		pcre2Available = probePCRE2()
	})
	return pcre2Available
}

func probePCRE2() bool {
	names, ok := pcre2LibraryNames[runtime.GOOS]
	if !ok {
		return false
	}

	for _, name := range names {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			continue
		}
		defer purego.Dlclose(lib)
		return true
	}
	return false
}
