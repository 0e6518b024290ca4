package instruction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Parser turns instructions into Operations using an ordered rule cascade.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	vocab Vocabulary
	rules []rule

	columnWordRe *regexp.Regexp
	copyVerbRe   *regexp.Regexp
	genLetter    []*regexp.Regexp
	genOrdinal   []*regexp.Regexp
	columns      []columnPattern
}

// rule is one step of the cascade. matched=false hands the text to the next
// rule; a non-nil error stops the cascade.
type rule struct {
	name  string
	apply func(text string) (op Operation, matched bool, err error)
}

// columnPattern extracts a column reference from transform-style text.
type columnPattern struct {
	re        *regexp.Regexp
	ordinal   bool
	stopwords map[string]bool
}

var defaultParser = NewParser(DefaultVocabulary())

// Parse parses an instruction with the default vocabulary.
func Parse(instruction string) (Operation, error) {
	return defaultParser.Parse(instruction)
}

// NewParser compiles a parser for the given vocabulary.
func NewParser(vocab Vocabulary) *Parser {
	p := &Parser{vocab: vocab}

	cw := alternation(asciiWords(vocab.ColumnWords))
	if cw == "" {
		cw = "column|col"
	}
	verbs := alternation(vocab.WriteVerbs)
	if verbs == "" {
		verbs = "fill"
	}
	copyVerbs := alternation(asciiWords(vocab.CopyVerbs))
	if copyVerbs == "" {
		copyVerbs = "copy"
	}

	p.columnWordRe = regexp.MustCompile(`(?i)\b(?:` + cw + `)\b`)
	p.copyVerbRe = regexp.MustCompile(`(?i)\b(?:` + copyVerbs + `)\b(.*?)\b(?:to|into)\b(.*)$`)

	p.genLetter = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:\b(?:in|into|to|on)\s+)?(?:\bthe\s+)?\b(?:` + cw + `)\s+([a-z]{1,3})\b\s*[,:]?\s*(?:` + verbs + `)\s+(?:with\s+)?(.+)`),
		regexp.MustCompile(`(?i)\b(?:` + verbs + `)\s+(?:(?:in|into|to)\s+)?(?:the\s+)?(?:` + cw + `)\s+([a-z]{1,3})\b\s*(?:with\b|:)?\s*(.+)`),
		regexp.MustCompile(`(?i)(?:在|向)?([A-Za-z]+)列(?:中)?(?:` + verbs + `)(.+)`),
	}
	p.genOrdinal = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:\b(?:in|into|to|on)\s+)?(?:\bthe\s+)?\b(?:` + cw + `)\s+(\d+)\b\s*[,:]?\s*(?:` + verbs + `)\s+(?:with\s+)?(.+)`),
		regexp.MustCompile(`(?i)\b(?:` + verbs + `)\s+(?:(?:in|into|to)\s+)?(?:the\s+)?(?:` + cw + `)\s+(\d+)\b\s*(?:with\b|:)?\s*(.+)`),
		regexp.MustCompile(`(?i)(?:在|向)?第(\d+)列(?:中)?(?:` + verbs + `)(.+)`),
	}

	p.columns = []columnPattern{
		{re: regexp.MustCompile(`(?i)(?:\bthe\s+)?\b(?:` + cw + `)\s+(\d+)\b`), ordinal: true},
		{re: regexp.MustCompile(`(?i)(?:\bthe\s+)?\b(?:` + cw + `)\s+([a-z]{1,3})\b`), stopwords: afterColumnStopwords},
		{re: regexp.MustCompile(`(?i)(?:\bthe\s+)?\b([a-z]{1,3})\s+(?:` + cw + `)\b`), stopwords: beforeColumnStopwords},
		{re: regexp.MustCompile(`(?i)(?:把|将)?(?:第)?([A-Za-z]+)列`)},
		{re: regexp.MustCompile(`(?:把|将)?第(\d+)列`), ordinal: true},
		{re: regexp.MustCompile(`(?i)列([A-Za-z]+)`)},
	}

	p.rules = []rule{
		{name: "copy", apply: p.parseCopy},
		{name: "generate-letter", apply: func(text string) (Operation, bool, error) {
			return p.parseGenerate(text, p.genLetter, false)
		}},
		{name: "generate-ordinal", apply: func(text string) (Operation, bool, error) {
			return p.parseGenerate(text, p.genOrdinal, true)
		}},
		{name: "transform", apply: p.parseTransform},
	}
	return p
}

// Vocabulary returns the keyword sets the parser was built with.
func (p *Parser) Vocabulary() Vocabulary {
	return p.vocab
}

// Parse turns one instruction into an Operation. Failures are *ParseError.
func (p *Parser) Parse(instruction string) (Operation, error) {
	text := normalize(instruction)
	if text == "" {
		return Operation{}, newParseError(instruction, MsgEmptyInput)
	}
	for _, r := range p.rules {
		op, matched, err := r.apply(text)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Input = instruction
			}
			return Operation{}, err
		}
		if matched {
			return op, nil
		}
	}
	return Operation{}, newParseError(instruction, MsgNoColumn)
}

// normalize folds fullwidth forms to ASCII and collapses whitespace.
func normalize(s string) string {
	s = width.Fold.String(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	copyTokenRe    = regexp.MustCompile(`[A-Za-z]+|\d+`)
	leadingPunctRe = regexp.MustCompile(`^[\s,;:.，；：。、]+`)
	trailPunctRe   = regexp.MustCompile(`[\s,;:，；：、]+$`)
)

var afterColumnStopwords = map[string]bool{
	"the": true, "to": true, "on": true, "in": true, "of": true, "and": true, "or": true,
	"for": true, "by": true, "at": true, "as": true, "is": true, "it": true, "be": true,
	"all": true, "per": true, "new": true, "set": true, "via": true, "an": true,
}

var beforeColumnStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "on": true, "in": true, "of": true,
	"and": true, "or": true, "for": true, "by": true, "at": true, "as": true, "is": true,
	"it": true, "all": true, "new": true, "one": true, "any": true, "per": true, "its": true,
}

func (p *Parser) parseCopy(text string) (Operation, bool, error) {
	if !p.columnWordRe.MatchString(text) && !strings.Contains(text, "列") {
		return Operation{}, false, nil
	}

	left, right, ok := "", "", false
	for _, marker := range p.vocab.CopyMarkers {
		if i := strings.Index(text, marker); i >= 0 {
			left, right, ok = text[:i], text[i+len(marker):], true
			break
		}
	}
	if !ok {
		m := p.copyVerbRe.FindStringSubmatch(text)
		if m == nil {
			return Operation{}, false, nil
		}
		left, right = m[1], m[2]
	}

	sources := p.copyTokens(left)
	if len(sources) == 0 {
		return Operation{}, true, newParseError(text, MsgCopyNoSource)
	}
	source := sources[len(sources)-1]

	var targets []ColumnRef
	for _, ref := range p.copyTokens(right) {
		if ref == source || containsRef(targets, ref) {
			continue
		}
		targets = append(targets, ref)
	}
	if len(targets) == 0 {
		return Operation{}, true, newParseError(text, MsgCopyNoTargets)
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	return Operation{
		Kind:        KindCopy,
		Target:      source,
		CopyTargets: targets,
		Directive:   "copy to " + strings.Join(names, ", "),
	}, true, nil
}

func (p *Parser) copyTokens(s string) []ColumnRef {
	noise := make(map[string]bool, len(p.vocab.NoiseWords))
	for _, w := range p.vocab.NoiseWords {
		noise[strings.ToLower(w)] = true
	}
	var refs []ColumnRef
	for _, tok := range copyTokenRe.FindAllString(s, -1) {
		if noise[strings.ToLower(tok)] {
			continue
		}
		if ref, ok := tokenToRef(tok); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// tokenToRef maps "3" to ColumnIndex(2) and "b" to ColumnName("B").
func tokenToRef(tok string) (ColumnRef, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, false
	}
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 {
			return nil, false
		}
		return ColumnIndex(n - 1), true
	}
	return ColumnName(strings.ToUpper(tok)), true
}

func containsRef(refs []ColumnRef, ref ColumnRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func (p *Parser) parseGenerate(text string, patterns []*regexp.Regexp, ordinal bool) (Operation, bool, error) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		tok, content := m[1], strings.TrimSpace(m[2])
		if !ordinal && afterColumnStopwords[strings.ToLower(tok)] {
			continue
		}
		if content == "" {
			continue
		}
		ref, ok := tokenToRef(tok)
		if !ok {
			continue
		}
		spec := ClassifyGenerate(content)
		if seq, ok := spec.(NumberSequence); ok && seq.Len() < 0 {
			return Operation{}, true, newParseError(text, MsgSequenceLong)
		}
		return Operation{
			Kind:      KindGenerate,
			Target:    ref,
			Directive: content,
			Generate:  spec,
		}, true, nil
	}
	return Operation{}, false, nil
}

func (p *Parser) parseTransform(text string) (Operation, bool, error) {
	var target ColumnRef
	for _, cp := range p.columns {
		if spans := cp.matches(text); len(spans) > 0 {
			target = spans[0].ref
			break
		}
	}
	if target == nil {
		return Operation{}, true, newParseError(text, MsgNoColumn)
	}

	directive := text
	for _, cp := range p.columns {
		directive = cp.strip(directive)
	}
	directive = p.cleanDirective(directive)
	if directive == "" {
		return Operation{}, true, newParseError(text, MsgNoDirective)
	}

	kind := KindTransform
	if p.isDeletionRequest(directive) {
		kind = KindClear
	}
	return Operation{Kind: kind, Target: target, Directive: directive}, true, nil
}

// isDeletionRequest reports whether the directive is nothing but a clear
// keyword plus filler ("clear all contents", "删除的内容"). A keyword elsewhere
// in the sentence ("keep empty cells") leaves it a transform.
func (p *Parser) isDeletionRequest(directive string) bool {
	for _, kw := range p.vocab.ClearKeywords {
		rest, ok := cutLeadingKeyword(directive, kw)
		if ok && p.onlyFiller(rest) {
			return true
		}
	}
	return false
}

func (p *Parser) onlyFiller(s string) bool {
	for {
		before := s
		s = leadingPunctRe.ReplaceAllString(s, "")
		for _, f := range p.vocab.ClearFillers {
			s = trimConnective(s, f)
		}
		for _, c := range p.vocab.Connectives {
			s = trimConnective(s, c)
		}
		if s == before {
			break
		}
	}
	return trailPunctRe.ReplaceAllString(s, "") == ""
}

// cutLeadingKeyword strips kw from the front of s. ASCII keywords match
// case-insensitively and must end on a word boundary.
func cutLeadingKeyword(s, kw string) (string, bool) {
	if kw == "" {
		return s, false
	}
	if !isASCIIWord(kw) {
		return strings.CutPrefix(s, kw)
	}
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return s, false
	}
	if len(s) > len(kw) && isWordByte(s[len(kw)]) {
		return s, false
	}
	return s[len(kw):], true
}

type refSpan struct {
	start, end int
	ref        ColumnRef
}

func (cp columnPattern) matches(text string) []refSpan {
	var out []refSpan
	for _, idx := range cp.re.FindAllStringSubmatchIndex(text, -1) {
		tok := text[idx[2]:idx[3]]
		if cp.stopwords[strings.ToLower(tok)] {
			continue
		}
		ref, ok := tokenToRef(tok)
		if !ok {
			continue
		}
		if _, isIndex := ref.(ColumnIndex); isIndex != cp.ordinal {
			continue
		}
		out = append(out, refSpan{start: idx[0], end: idx[1], ref: ref})
	}
	return out
}

func (cp columnPattern) strip(text string) string {
	spans := cp.matches(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.start])
		b.WriteByte(' ')
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func (p *Parser) cleanDirective(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		before := s
		s = leadingPunctRe.ReplaceAllString(s, "")
		for _, c := range p.vocab.Connectives {
			s = trimConnective(s, c)
		}
		if s == before {
			break
		}
	}
	return trailPunctRe.ReplaceAllString(s, "")
}

func trimConnective(s, c string) string {
	if c == "" {
		return s
	}
	if !isASCIIWord(c) {
		return strings.TrimPrefix(s, c)
	}
	if len(s) < len(c) || !strings.EqualFold(s[:len(c)], c) {
		return s
	}
	if len(s) == len(c) {
		return ""
	}
	if s[len(c)] == ' ' {
		return strings.TrimLeft(s[len(c):], " ")
	}
	return s
}

// String renders an operation for logs and the parse command.
func (o Operation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s target=%v", o.Kind, o.Target)
	if len(o.CopyTargets) > 0 {
		fmt.Fprintf(&b, " copy_targets=%v", o.CopyTargets)
	}
	if o.Generate != nil {
		fmt.Fprintf(&b, " generate=%q", DescribeGenerate(o.Generate))
	}
	if o.Directive != "" {
		fmt.Fprintf(&b, " directive=%q", o.Directive)
	}
	return b.String()
}
