package instruction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Vocabulary holds the keyword sets the parser recognises. The defaults cover
// English and Chinese; callers extend them with Merge.
type Vocabulary struct {
	// CopyVerbs start an English copy instruction ("copy column A to B").
	CopyVerbs []string
	// CopyMarkers are fused verb+preposition forms that split source from
	// targets ("复制到").
	CopyMarkers []string
	// WriteVerbs introduce a Generate instruction.
	WriteVerbs []string
	// ClearKeywords turn a column instruction into a Clear when one leads the
	// directive and only ClearFillers follow it.
	ClearKeywords []string
	// ClearFillers may trail a clear keyword without making it a transform
	// ("all", "contents", "的内容").
	ClearFillers []string
	// ColumnWords name a column in running text ("column", "col").
	ColumnWords []string
	// Connectives are stripped from the start of a directive.
	Connectives []string
	// NoiseWords are ignored when tokenising copy instructions.
	NoiseWords []string
}

// DefaultVocabulary returns the built-in English and Chinese keyword sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		CopyVerbs:     []string{"copy", "duplicate"},
		CopyMarkers:   []string{"复制到", "拷贝到"},
		WriteVerbs:    []string{"add", "fill", "write", "generate", "添加", "填充", "写入", "生成"},
		ClearKeywords: []string{"clear", "delete", "empty", "blank out", "删除", "清空", "置空", "清除"},
		ClearFillers:  []string{"the", "all", "of", "in", "this", "it", "everything", "contents", "content", "cells", "values", "data", "所有", "全部", "的", "中", "里", "内容", "数据"},
		ColumnWords:   []string{"column", "columns", "col", "cols"},
		Connectives:   []string{"the", "to", "on", "in", "for", "把", "将", "对"},
		NoiseWords:    []string{"column", "columns", "col", "cols", "and", "the", "to", "into", "also", "both", "of"},
	}
}

// Merge returns a copy of v with every set extended by the entries of other.
// Order is preserved and duplicates are dropped.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	return Vocabulary{
		CopyVerbs:     union(v.CopyVerbs, other.CopyVerbs),
		CopyMarkers:   union(v.CopyMarkers, other.CopyMarkers),
		WriteVerbs:    union(v.WriteVerbs, other.WriteVerbs),
		ClearKeywords: union(v.ClearKeywords, other.ClearKeywords),
		ClearFillers:  union(v.ClearFillers, other.ClearFillers),
		ColumnWords:   union(v.ColumnWords, other.ColumnWords),
		Connectives:   union(v.Connectives, other.Connectives),
		NoiseWords:    union(v.NoiseWords, other.NoiseWords),
	}
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// alternation builds a regexp alternation, longest entries first so that
// "columns" wins over "column".
func alternation(words []string) string {
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// asciiWords filters to entries made of ASCII letters and spaces.
func asciiWords(words []string) []string {
	var out []string
	for _, w := range words {
		if isASCIIWord(w) {
			out = append(out, w)
		}
	}
	return out
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
