package vm

import (
	"regexp"
	"strings"
)

// regexMatch implements Base's `match(re, s)`, returning `nothing` on no
// match and an ObjTuple of captured groups (group 0 first, the whole
// match) otherwise — a simplified stand-in for Base's richer
// RegexMatch struct, sufficient for the truthiness/indexing patterns
// user code exercises against it.
func regexMatch(re, s Value) (Value, error) {
	if re.Kind != KindObject || re.Obj.OKind != ObjRegex {
		return Nothing, &ExecError{Message: "match requires a Regex", ExcType: "TypeError"}
	}
	pattern := re.Obj.Pattern
	if strings.ContainsRune(re.Obj.Flags, 'i') {
		pattern = "(?i)" + pattern
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return Nothing, &ExecError{Message: "invalid regex: " + err.Error(), ExcType: "ArgumentError"}
	}
	groups := compiled.FindStringSubmatch(s.Str)
	if groups == nil {
		return Nothing, nil
	}
	elems := make([]Value, len(groups))
	for i, g := range groups {
		elems[i] = NewString(g)
	}
	return Value{Kind: KindObject, Obj: &Object{OKind: ObjTuple, Elems: elems}}, nil
}
