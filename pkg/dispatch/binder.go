package dispatch

import (
	"strings"
	"time"
)

// Synthetic argument keys. Synthetic arguments are control parameters
// understood by the dispatcher itself; they are extracted before parameter
// validation and never forwarded to the endpoint.
const (
	// SyntheticAuthenticate overrides the default authorization decision
	// for one call. True forces an attach attempt, false forces omission.
	SyntheticAuthenticate = "-authenticate"

	// SyntheticSince requests a since-time filter; it is sent as an
	// If-Modified-Since header rather than an endpoint parameter.
	SyntheticSince = "-since"

	// SyntheticLegacy switches on legacy behavior for endpoints kept
	// through a deprecation window, suppressing the deprecation warning.
	SyntheticLegacy = "-legacy"
)

// syntheticPrefix marks reserved dispatcher-level argument keys.
const syntheticPrefix = "-"

// Synthetics is the extracted set of synthetic control arguments.
type Synthetics struct {
	// Authenticate is nil when the caller did not override the default
	// authorization behavior.
	Authenticate *bool

	// Since is the zero time when no since-filter was requested.
	Since time.Time

	Legacy bool
}

// CallArguments is a caller-supplied argument list: positional values in
// declaration order plus an optional named set. When the final argument of a
// variadic invocation is a map, the client treats it as the named set rather
// than a positional value.
type CallArguments struct {
	Positional []interface{}
	Named      Args
}

// BoundCall is the canonical resolved form of one method invocation.
type BoundCall struct {
	Definition *MethodDefinition

	// InvokedAs is the name the caller used, kept for error messages when
	// the caller invoked an alias.
	InvokedAs string

	Params     Args
	Synthetics Synthetics
}

// Bind resolves call arguments against a method definition. It is a pure
// function: binding the same inputs twice yields identical bound calls.
func Bind(def *MethodDefinition, invokedAs string, call CallArguments) (*BoundCall, error) {
	bound := &BoundCall{
		Definition: def,
		InvokedAs:  invokedAs,
		Params:     make(Args),
	}

	named := call.Named.Clone()
	if named == nil {
		named = make(Args)
	}

	if err := extractSynthetics(invokedAs, named, &bound.Synthetics); err != nil {
		return nil, err
	}

	if err := bindPositional(def, invokedAs, call.Positional, bound.Params); err != nil {
		return nil, err
	}

	if err := mergeNamed(def, invokedAs, named, bound.Params); err != nil {
		return nil, err
	}

	if err := checkRequired(def, invokedAs, bound.Params); err != nil {
		return nil, err
	}

	return bound, nil
}

// extractSynthetics pulls reserved-prefixed keys out of the named set. They
// are removed before the unknown-key check so they are never rejected as
// unknown parameters.
func extractSynthetics(invokedAs string, named Args, out *Synthetics) error {
	for key, value := range named {
		if !strings.HasPrefix(key, syntheticPrefix) {
			continue
		}

		switch key {
		case SyntheticAuthenticate:
			flag, ok := value.(bool)
			if !ok {
				return bindingErrorf(invokedAs, "synthetic argument %s must be a bool", key)
			}

			out.Authenticate = &flag

		case SyntheticSince:
			since, ok := value.(time.Time)
			if !ok {
				return bindingErrorf(invokedAs, "synthetic argument %s must be a time.Time", key)
			}

			out.Since = since

		case SyntheticLegacy:
			flag, ok := value.(bool)
			if !ok {
				return bindingErrorf(invokedAs, "synthetic argument %s must be a bool", key)
			}

			out.Legacy = flag

		default:
			return bindingErrorf(invokedAs, "unknown synthetic argument: %s", key)
		}

		delete(named, key)
	}

	return nil
}

// bindPositional consumes positional values strictly in required-parameter
// order. A surplus positional value is an error, except for the
// single-argument convenience form: a definition declaring exactly one
// total parameter accepts one positional value for that parameter whether
// it is required, optional, or the identity group.
func bindPositional(def *MethodDefinition, invokedAs string, positional []interface{}, params Args) error {
	if len(positional) == 0 {
		return nil
	}

	idx := 0
	for _, name := range def.Required {
		if idx >= len(positional) {
			break
		}

		params[name] = positional[idx]
		idx++
	}

	// A leftover positional value may fill the identity-group slot.
	if idx < len(positional) && len(def.IDGroup) > 0 && !groupSatisfied(def.IDGroup, params) {
		params[def.IDGroup[0]] = positional[idx]
		idx++
	}

	if idx < len(positional) {
		if def.totalParams() == 1 && len(positional) == 1 {
			return bindSingleConvenience(def, positional[0], params)
		}

		return bindingErrorf(invokedAs, "too many positional arguments: got %d, method takes %d required",
			len(positional), len(def.Required))
	}

	return nil
}

// bindSingleConvenience binds one positional value to the sole declared
// parameter, whatever its kind.
func bindSingleConvenience(def *MethodDefinition, value interface{}, params Args) error {
	switch {
	case len(def.Required) == 1:
		params[def.Required[0]] = value
	case len(def.Optional) == 1:
		params[def.Optional[0]] = value
	default:
		params[def.IDGroup[0]] = value
	}

	return nil
}

// mergeNamed merges the named set, rejecting keys the definition does not
// declare. Unknown keys are an error rather than a silent drop so that
// typos never vanish into the request.
func mergeNamed(def *MethodDefinition, invokedAs string, named Args, params Args) error {
	for key, value := range named {
		if !def.accepts(key) {
			return bindingErrorf(invokedAs, "unknown parameter: %s", key)
		}

		params[key] = value
	}

	return nil
}

// checkRequired verifies every required parameter and the identity group
// ended up with a value.
func checkRequired(def *MethodDefinition, invokedAs string, params Args) error {
	for _, name := range def.Required {
		if _, ok := params[name]; !ok {
			return bindingErrorf(invokedAs, "missing required parameter: %s", name)
		}
	}

	if len(def.IDGroup) > 0 && !groupSatisfied(def.IDGroup, params) {
		return bindingErrorf(invokedAs, "missing required parameter: one of %s", strings.Join(def.IDGroup, ", "))
	}

	return nil
}

// groupSatisfied reports whether any member of an identity group is bound.
func groupSatisfied(group []string, params Args) bool {
	for _, name := range group {
		if _, ok := params[name]; ok {
			return true
		}
	}

	return false
}
