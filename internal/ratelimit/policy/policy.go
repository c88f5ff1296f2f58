// Package policy resolves the tiered limit configuration for an endpoint.
// Resolution is pure table lookup over static configuration; precedence is
// public-route overrides, then exact (endpoint, method) rules, then path
// pattern rules in table order, then the global defaults.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/models"
)

type patternRule struct {
	re      *regexp.Regexp
	methods map[string]models.LimitPolicy
}

// Resolver maps (endpoint, method) to a LimitPolicy. Immutable after New.
type Resolver struct {
	defaults models.LimitPolicy
	public   map[string]models.LimitPolicy
	exact    map[string]models.LimitPolicy
	patterns []patternRule
}

// New compiles the configured limit tables. Patterns containing :param
// placeholders are compiled to anchored expressions where a placeholder
// matches exactly one path segment.
func New(cfg *config.Config) (*Resolver, error) {
	r := &Resolver{
		defaults: toPolicy(cfg.Defaults),
		public:   make(map[string]models.LimitPolicy, len(cfg.PublicRoutes)),
		exact:    make(map[string]models.LimitPolicy),
	}

	for _, rule := range cfg.PublicRoutes {
		r.public[rule.Path] = toPolicy(rule.Limits)
	}

	// Pattern rules sharing a template are grouped so one compiled regexp
	// serves every method; group order follows first appearance in the
	// table, which is the documented priority order.
	patternIndex := make(map[string]int)
	for _, rule := range cfg.EndpointRules {
		method := strings.ToUpper(rule.Method)
		if !strings.Contains(rule.Pattern, ":") {
			r.exact[exactKey(rule.Pattern, method)] = toPolicy(rule.Limits)
			continue
		}
		idx, ok := patternIndex[rule.Pattern]
		if !ok {
			re, err := compilePattern(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile endpoint pattern %q: %w", rule.Pattern, err)
			}
			r.patterns = append(r.patterns, patternRule{re: re, methods: make(map[string]models.LimitPolicy)})
			idx = len(r.patterns) - 1
			patternIndex[rule.Pattern] = idx
		}
		r.patterns[idx].methods[method] = toPolicy(rule.Limits)
	}

	return r, nil
}

// Resolve returns the limit policy for a concrete request path and method.
// A pattern match that has no rule for the method falls through to the
// global defaults rather than borrowing another method's limits.
func (r *Resolver) Resolve(endpoint, method string) models.LimitPolicy {
	method = strings.ToUpper(method)

	if p, ok := r.public[endpoint]; ok {
		return p
	}
	if p, ok := r.exact[exactKey(endpoint, method)]; ok {
		return p
	}
	for _, rule := range r.patterns {
		if !rule.re.MatchString(endpoint) {
			continue
		}
		if p, ok := rule.methods[method]; ok {
			return p
		}
		break
	}
	return r.defaults
}

func exactKey(endpoint, method string) string {
	return method + " " + endpoint
}

// compilePattern turns "/v1/customers/:id" into ^/v1/customers/[^/]+$.
// Literal segments are regexp-escaped so paths with metacharacters cannot
// widen the match.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			segments[i] = "[^/]+"
		} else {
			segments[i] = regexp.QuoteMeta(seg)
		}
	}
	return regexp.Compile("^" + strings.Join(segments, "/") + "$")
}

func toPolicy(l config.Limit) models.LimitPolicy {
	return models.LimitPolicy{
		PerShortWindow: l.PerMinute,
		PerLongWindow:  l.PerHour,
		ShortWindow:    config.ShortWindow,
		LongWindow:     config.LongWindow,
	}
}
