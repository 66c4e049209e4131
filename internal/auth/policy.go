package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/northwind-service/internal/domain"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
)

var (
	// ErrUnauthenticated means the route needs an identity and none is attached.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the attached identity lacks every required role.
	ErrForbidden = errors.New("insufficient role")
)

// RequirementKind classifies what a rule demands of the caller.
type RequirementKind int

const (
	RequirePublic RequirementKind = iota
	RequireAuthenticated
	RequireRoles
)

// Requirement is the access level a rule grants.
type Requirement struct {
	Kind  RequirementKind
	Roles []string
}

// Public allows every caller.
func Public() Requirement { return Requirement{Kind: RequirePublic} }

// Authenticated allows any verified identity.
func Authenticated() Requirement { return Requirement{Kind: RequireAuthenticated} }

// AnyRole allows identities holding at least one of roles.
func AnyRole(roles ...string) Requirement {
	return Requirement{Kind: RequireRoles, Roles: roles}
}

// Rule maps methods and path patterns to a requirement. Empty Methods matches every
// method. A pattern is either an exact path or "prefix/**", which matches the prefix
// and everything beneath it.
type Rule struct {
	Methods     []string
	Patterns    []string
	Requirement Requirement
}

// DefaultRules is the route table of the API, evaluated first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Methods: []string{fiber.MethodPost}, Patterns: []string{"/api/auth/**"}, Requirement: Public()},
		{Methods: []string{fiber.MethodGet}, Patterns: []string{"/api/products/**", "/api/categories/**", "/api/suppliers/**"}, Requirement: Public()},
		{Methods: []string{fiber.MethodGet}, Patterns: []string{"/api/customers/**", "/api/orders/**", "/api/employees/**"}, Requirement: AnyRole(domain.RoleStaff, domain.RoleAdmin)},
		{Patterns: []string{"/health/**"}, Requirement: Public()},
		{Patterns: []string{"/actuator/**"}, Requirement: AnyRole(domain.RoleAdmin)},
		{Patterns: []string{"/**"}, Requirement: Authenticated()},
	}
}

// DecisionObserver is notified of every policy outcome.
type DecisionObserver interface {
	ObserveAuthDecision(outcome string)
}

// Policy evaluates the route table after the Gate has run.
type Policy struct {
	rules    []Rule
	observer DecisionObserver
}

// NewPolicy builds a policy over rules. A nil or empty table falls back to DefaultRules.
func NewPolicy(rules []Rule, observer DecisionObserver) *Policy {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	normalized := make([]Rule, len(rules))
	for i, rule := range rules {
		patterns := make([]string, len(rule.Patterns))
		for j, p := range rule.Patterns {
			patterns[j] = normalizePath(p)
		}
		methods := make([]string, len(rule.Methods))
		for j, m := range rule.Methods {
			methods[j] = strings.ToUpper(m)
		}
		normalized[i] = Rule{Methods: methods, Patterns: patterns, Requirement: rule.Requirement}
	}
	return &Policy{rules: normalized, observer: observer}
}

// Match returns the requirement of the first rule matching the request. Requests no
// rule matches need an authenticated identity.
func (p *Policy) Match(method, path string) Requirement {
	method = strings.ToUpper(method)
	path = normalizePath(path)
	for _, rule := range p.rules {
		if rule.matches(method, path) {
			return rule.Requirement
		}
	}
	return Authenticated()
}

// Decide returns nil when identity may call method+path, ErrUnauthenticated or
// ErrForbidden otherwise.
func (p *Policy) Decide(method, path string, identity *domain.Identity) error {
	req := p.Match(method, path)
	switch req.Kind {
	case RequirePublic:
		return nil
	case RequireRoles:
		if identity == nil {
			return ErrUnauthenticated
		}
		if !identity.HasAnyRole(req.Roles...) {
			return ErrForbidden
		}
		return nil
	default:
		if identity == nil {
			return ErrUnauthenticated
		}
		return nil
	}
}

// Handle enforces the policy for the current request.
func (p *Policy) Handle(c *fiber.Ctx) error {
	identity, _ := IdentityFromContext(c)
	err := p.Decide(c.Method(), c.Path(), identity)
	switch {
	case err == nil:
		p.observe("allowed")
		return c.Next()
	case errors.Is(err, ErrForbidden):
		p.observe("forbidden")
		return apperrors.NewForbidden("Forbidden")
	default:
		p.observe("unauthenticated")
		return apperrors.NewUnauthorized("Unauthorized")
	}
}

func (p *Policy) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObserveAuthDecision(outcome)
	}
}

func (r Rule) matches(method, path string) bool {
	if len(r.Methods) > 0 {
		found := false
		for _, m := range r.Methods {
			if m == method {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, pattern := range r.Patterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	prefix, wildcard := strings.CutSuffix(pattern, "/**")
	if !wildcard {
		return pattern == path
	}
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// normalizePath lowercases and drops a trailing slash so that the case-insensitive,
// non-strict router and the policy agree on which route a request addresses.
func normalizePath(path string) string {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && !strings.HasSuffix(path, "/**") {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
