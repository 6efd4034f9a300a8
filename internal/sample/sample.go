// Package sample picks which matched elements get a contingency case.
package sample

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
)

// Options control Select.
type Options struct {
	// Filters are regular expressions; when any is set the selection is
	// every key one of them matches, regardless of Max.
	Filters []*regexp.Regexp
	// All selects every key.
	All bool
	// Seed drives the random draw.
	Seed int64
	// Max is the expected size of the random draw.
	Max int
}

// CompileFilters compiles command-line filter expressions.
func CompileFilters(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("sample: filter %q: %w", e, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Select returns the chosen keys in lexical order. The random draw visits
// keys in lexical order and keeps each one independently with probability
// Max/len(keys): every key has the same chance and the selection size is
// Max on average, not exactly. A given seed and key set always yield the
// same selection.
func Select(keys []string, opts Options) []string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	if len(opts.Filters) > 0 {
		var out []string
		for _, k := range sorted {
			for _, re := range opts.Filters {
				if re.MatchString(k) {
					out = append(out, k)
					break
				}
			}
		}
		return out
	}
	if opts.All || len(sorted) <= opts.Max {
		return sorted
	}
	if opts.Max <= 0 {
		return nil
	}
	seed := uint64(opts.Seed)
	rng := rand.New(rand.NewPCG(seed, seed))
	p := float64(opts.Max) / float64(len(sorted))
	out := make([]string, 0, opts.Max)
	for _, k := range sorted {
		if rng.Float64() < p {
			out = append(out, k)
		}
	}
	return out
}
