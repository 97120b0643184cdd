// Package methodtable implements multiple-dispatch method resolution:
// per-name method tables, a specificity scorer over the built-in abstract
// numeric/container hierarchy, and the covariant-bound and runtime-rescan
// fallback passes. The dispatch algorithm is ported directly from the
// reference VM's typed-call instruction handler rather than reinvented,
// since no example repo in the retrieval pack implements Julia-style
// specificity-ordered multiple dispatch.
package methodtable

import "strings"

// isTypeVar reports whether s is a short uppercase-or-digit type-variable
// name (T, S, T1), as opposed to a concrete or abstract type name.
func isTypeVar(s string) bool {
	if s == "" || len(s) > 2 {
		return false
	}
	for _, c := range s {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// parseParametric splits "Complex{T}" into ("Complex", ["T"]); a pattern
// with no braces returns (s, nil).
func parseParametric(s string) (base string, params []string) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s, nil
	}
	end := strings.LastIndexByte(s, '}')
	if end < 0 || end < start {
		return s, nil
	}
	base = s[:start]
	for _, p := range strings.Split(s[start+1:end], ",") {
		params = append(params, strings.TrimSpace(p))
	}
	return base, params
}

func baseName(s string) string {
	if idx := strings.IndexByte(s, '{'); idx >= 0 {
		return s[:idx]
	}
	return s
}

var numericTypes = map[string]bool{
	"Int8": true, "Int16": true, "Int32": true, "Int64": true, "Int128": true,
	"UInt8": true, "UInt16": true, "UInt32": true, "UInt64": true, "UInt128": true,
	"Float16": true, "Float32": true, "Float64": true,
	"Bool": true, "BigInt": true, "BigFloat": true,
}

var integerTypes = map[string]bool{
	"Int8": true, "Int16": true, "Int32": true, "Int64": true, "Int128": true,
	"UInt8": true, "UInt16": true, "UInt32": true, "UInt64": true, "UInt128": true,
	"Bool": true, "BigInt": true,
}

var signedTypes = map[string]bool{
	"Int8": true, "Int16": true, "Int32": true, "Int64": true, "Int128": true, "BigInt": true,
}

var unsignedTypes = map[string]bool{
	"UInt8": true, "UInt16": true, "UInt32": true, "UInt64": true, "UInt128": true, "Bool": true,
}

var floatTypes = map[string]bool{
	"Float16": true, "Float32": true, "Float64": true, "BigFloat": true,
}

// isAbstractSupertype reports whether expected (an abstract type name, or
// "Any") subsumes actual (a concrete or array-family type name). This
// hard-codes the built-in hierarchy; it does not consult user-declared
// AbstractTypeDefs (spec Open Question, deferred — see DESIGN.md).
func isAbstractSupertype(expected, actual string) bool {
	if expected == "Any" {
		return true
	}
	actBase := baseName(actual)
	switch expected {
	case "Array":
		return actBase == "Vector" || actBase == "Matrix" || actBase == "Array"
	case "Number":
		return numericTypes[actBase]
	case "Real":
		return numericTypes[actBase]
	case "Integer":
		return integerTypes[actBase]
	case "Signed":
		return signedTypes[actBase]
	case "Unsigned":
		return unsignedTypes[actBase]
	case "AbstractFloat":
		return floatTypes[actBase]
	case "AbstractString":
		return actBase == "String" || actBase == "SubString"
	}
	return false
}

// typeMatches checks a single expected-pattern / actual-type pair, updating
// bindings with any TypeVar it binds along the way. Order of cases mirrors
// the reference implementation exactly: abstract-supertype check first (so
// "Any" matches "Vector{Int64}" before the parametric branch can reject it
// on base-name mismatch), then covariant bound, then TypeVar, then
// parametric structure, then exact match, then abstract fallback.
func typeMatches(expected, actual string, bindings map[string]string) bool {
	if isAbstractSupertype(expected, actual) {
		return true
	}
	if bound, ok := strings.CutPrefix(expected, "_<:"); ok {
		return isAbstractSupertype(bound, actual)
	}
	if isTypeVar(expected) {
		if bound, ok := bindings[expected]; ok {
			return bound == actual
		}
		bindings[expected] = actual
		return true
	}

	expBase, expParams := parseParametric(expected)
	actBase, actParams := parseParametric(actual)

	if len(expParams) > 0 || len(actParams) > 0 {
		basesMatch := expBase == actBase ||
			(expBase == "Array" && (actBase == "Vector" || actBase == "Matrix" || actBase == "Array"))
		if !basesMatch {
			return false
		}
		if len(expParams) == 0 {
			return true
		}
		if len(expParams) != len(actParams) {
			return false
		}
		for i, expParam := range expParams {
			actParam := actParams[i]
			switch {
			case isTypeVar(expParam):
				if bound, ok := bindings[expParam]; ok {
					if bound != actParam {
						return false
					}
				} else {
					bindings[expParam] = actParam
				}
			default:
				if bound, ok := strings.CutPrefix(expParam, "_<:"); ok {
					if !isAbstractSupertype(bound, actParam) {
						return false
					}
				} else if expParam != actParam {
					return false
				}
			}
		}
		return true
	}

	if expected == actual {
		return true
	}
	return isAbstractSupertype(expected, actual)
}

// patternMatches reports whether every element of expectedTypes matches the
// corresponding element of argTypes, with repeated TypeVars constrained to
// bind identically across positions.
func patternMatches(expectedTypes, argTypes []string) bool {
	if len(expectedTypes) != len(argTypes) {
		return false
	}
	bindings := make(map[string]string, len(expectedTypes))
	for i, expected := range expectedTypes {
		if !typeMatches(expected, argTypes[i], bindings) {
			return false
		}
	}
	return true
}

// patternSpecificity scores a parameter pattern list: concrete types score
// highest, abstract types score in hierarchy order, TypeVars lower the
// score (fewer TypeVars is more specific) except repeated occurrences of
// the same TypeVar, which raise it sharply (an [T, T] signature is more
// specific than [T, S] once both match). Ported verbatim from the
// reference VM's pattern_specificity.
func patternSpecificity(expectedTypes []string) int {
	specificity := 0
	typeVarCount := 0
	sameTypeVarBonus := 0
	seen := make(map[string]bool, len(expectedTypes))
	for _, expected := range expectedTypes {
		if isTypeVar(expected) {
			typeVarCount++
			if seen[expected] {
				sameTypeVarBonus += 100
			}
			seen[expected] = true
			continue
		}
		hasParams := strings.Contains(expected, "{")
		base := baseName(expected)
		var typeScore int
		switch {
		case base == "Any":
			typeScore = 0
		case base == "Number":
			typeScore = 2
		case base == "Real":
			typeScore = 3
		case base == "Integer" || base == "AbstractFloat":
			typeScore = 4
		case base == "Signed" || base == "Unsigned":
			typeScore = 5
		case base == "Array" || base == "AbstractString":
			typeScore = 6
		case strings.HasPrefix(base, "_<:"):
			typeScore = 3
		default:
			typeScore = 10
		}
		paramBonus := 0
		if hasParams {
			paramBonus = 1
		}
		specificity += typeScore + paramBonus
	}
	return specificity - typeVarCount + sameTypeVarBonus
}
