package search

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// countTokenLines parses C source and counts the lines holding an identifier
// spelled like the symbol. Comments and string literals never match; macro
// bodies (preproc_arg) are opaque to the grammar and get a whole-word check.
func (m *matcher) countTokenLines(ctx context.Context, src []byte) (int, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return 0, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rows := make(map[uint32]bool)
	m.collectRows(tree.RootNode(), src, rows)
	return len(rows), nil
}

func (m *matcher) collectRows(n *sitter.Node, src []byte, rows map[uint32]bool) {
	switch n.Type() {
	case "comment", "string_literal", "char_literal", "system_lib_string":
		return
	case "identifier":
		if m.spellings[n.Content(src)] {
			rows[n.StartPoint().Row] = true
		}
		return
	case "preproc_arg":
		start := n.StartPoint().Row
		for i, line := range strings.Split(n.Content(src), "\n") {
			if m.word.MatchString(line) {
				rows[start+uint32(i)] = true
			}
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		m.collectRows(n.Child(i), src, rows)
	}
}
