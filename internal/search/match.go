package search

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// matcher counts matching lines of a single file for one symbol name.
type matcher struct {
	mode Mode
	name []byte

	// Token mode only: accepted identifier spellings and their whole-word form.
	spellings map[string]bool
	word      *regexp.Regexp
}

func newMatcher(mode Mode, name string) *matcher {
	m := &matcher{mode: mode, name: []byte(name)}
	if mode == ModeToken {
		forms := []string{name, "CONFIG_" + name, "CONFIG_" + name + "_MODULE"}
		m.spellings = make(map[string]bool, len(forms))
		quoted := make([]string, len(forms))
		for i, f := range forms {
			m.spellings[f] = true
			quoted[i] = regexp.QuoteMeta(f)
		}
		m.word = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return m
}

func (m *matcher) countFile(ctx context.Context, path string, content []byte) int {
	// Every accepted spelling contains the bare name.
	if !bytes.Contains(content, m.name) {
		return 0
	}
	if isBinary(content) {
		// A binary file reports at most one match, as grep does.
		if m.mode == ModeToken && !m.word.Match(content) {
			return 0
		}
		return 1
	}
	if m.mode != ModeToken {
		return countSubstringLines(content, m.name)
	}
	if isCSource(path) {
		if n, err := m.countTokenLines(ctx, content); err == nil {
			return n
		}
	}
	return m.countWordLines(content)
}

// countSubstringLines counts lines containing name at least once.
func countSubstringLines(content, name []byte) int {
	n := 0
	for {
		i := bytes.Index(content, name)
		if i < 0 {
			return n
		}
		n++
		eol := bytes.IndexByte(content[i:], '\n')
		if eol < 0 {
			return n
		}
		content = content[i+eol+1:]
	}
}

// countWordLines counts lines holding one of the spellings as a whole word.
func (m *matcher) countWordLines(content []byte) int {
	n := 0
	for len(content) > 0 {
		line := content
		if eol := bytes.IndexByte(content, '\n'); eol >= 0 {
			line, content = content[:eol], content[eol+1:]
		} else {
			content = nil
		}
		if bytes.Contains(line, m.name) && m.word.Match(line) {
			n++
		}
	}
	return n
}

func isBinary(content []byte) bool {
	probe := content
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

func isCSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return true
	}
	return false
}
