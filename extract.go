package defclean

import "regexp"

// symbolPattern matches a CONFIG_ prefix followed by identifier characters.
// It is deliberately unanchored: "# CONFIG_FOO is not set" yields FOO.
var symbolPattern = regexp.MustCompile(`CONFIG_([A-Za-z0-9_]+)`)

// ExtractSymbols returns every symbol on line, left to right. Lines without
// an occurrence (blank, comments, binary garbage) yield nil.
func ExtractSymbols(line string) []SymbolMatch {
	found := symbolPattern.FindAllStringSubmatch(line, -1)
	if len(found) == 0 {
		return nil
	}
	matches := make([]SymbolMatch, 0, len(found))
	for _, m := range found {
		matches = append(matches, SymbolMatch{Line: line, Name: m[1]})
	}
	return matches
}
