package memory

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"
)

// FollowUpMaxLength is the length below which a follow-up phrase counts as a
// continuation of the previous input.
const FollowUpMaxLength = 50

// ThreadGap is the pause after which a user input always opens a new thread.
const ThreadGap = 5 * time.Minute

// Lexicon holds the keyword sets used by thread analysis and reference
// resolution. All matching is case-insensitive on word boundaries.
type Lexicon struct {
	// ContinuationWords mark an input as continuing the current thread.
	ContinuationWords []string `yaml:"continuationWords" json:"continuationWords"`

	// ReferencePronouns continue the thread when they start the input.
	ReferencePronouns []string `yaml:"referencePronouns" json:"referencePronouns"`

	// FollowUpPhrases continue the thread in short inputs.
	FollowUpPhrases []string `yaml:"followUpPhrases" json:"followUpPhrases"`

	// ReferenceKeywords make the resolver pull back an earlier exchange.
	ReferenceKeywords []string `yaml:"referenceKeywords" json:"referenceKeywords"`
}

// DefaultLexicon returns the built-in English keyword sets.
func DefaultLexicon() Lexicon {
	return Lexicon{
		ContinuationWords: []string{"also", "and", "but", "however", "what about", "how about"},
		ReferencePronouns: []string{"it", "this", "that", "they", "these", "those"},
		FollowUpPhrases:   []string{"why", "how", "what if", "can you", "could you"},
		ReferenceKeywords: []string{
			"you said", "you mentioned", "earlier", "before", "previous",
			"that answer", "your response", "you told me", "what you said",
			"from before", "remember when", "like you said", "as you mentioned",
		},
	}
}

// matcher is a compiled Lexicon.
type matcher struct {
	continuationRe *regexp.Regexp
	followUp       *regexp.Regexp
	reference      *regexp.Regexp
	pronouns       map[string]bool
}

func compileLexicon(lex Lexicon) *matcher {
	m := &matcher{
		continuationRe: phraseRegexp(lex.ContinuationWords),
		followUp:       phraseRegexp(lex.FollowUpPhrases),
		reference:      phraseRegexp(lex.ReferenceKeywords),
		pronouns:       make(map[string]bool, len(lex.ReferencePronouns)),
	}
	for _, p := range lex.ReferencePronouns {
		m.pronouns[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return m
}

// phraseRegexp builds a case-insensitive word-boundary alternation.
// A nil result matches nothing.
func phraseRegexp(phrases []string) *regexp.Regexp {
	alts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		words := strings.Fields(p)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

// startsWithPronoun reports whether the first word of s is a reference pronoun.
// Apostrophes split words like \b does, so "it's" starts with "it".
func (m *matcher) startsWithPronoun(s string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return false
	}
	return m.pronouns[strings.ToLower(words[0])]
}

func (m *matcher) isReference(s string) bool {
	return matches(m.reference, s)
}

// Continuation describes a user input relative to the previous user input of
// the open thread. It is the environment of expression rules.
type Continuation struct {
	Content             string  `expr:"content"`
	Previous            string  `expr:"previous"`
	GapSeconds          float64 `expr:"gapSeconds"`
	HasContinuationWord bool    `expr:"hasContinuationWord"`
	StartsWithReference bool    `expr:"startsWithReference"`
	HasFollowUp         bool    `expr:"hasFollowUp"`
	Length              int     `expr:"length"`
}

func (m *matcher) continuation(content, previous string, gap time.Duration) Continuation {
	return Continuation{
		Content:             content,
		Previous:            previous,
		GapSeconds:          gap.Seconds(),
		HasContinuationWord: matches(m.continuationRe, content),
		StartsWithReference: m.startsWithPronoun(content),
		HasFollowUp:         matches(m.followUp, content),
		Length:              utf8.RuneCountInString(content),
	}
}

// ContinuationRule decides whether a user input continues the open thread.
// Skill changes and pauses of ThreadGap or more always open a new thread and
// are checked before the rule.
//
// Implementations:
//   - DefaultRule: lexical signals
//   - ExprRule: expr-lang expression over Continuation
type ContinuationRule interface {
	Continues(c Continuation) bool
}

// DefaultRule continues a thread when the input carries a continuation word,
// starts with a reference pronoun, or is a short follow-up question.
type DefaultRule struct{}

// Continues implements ContinuationRule.
func (DefaultRule) Continues(c Continuation) bool {
	return c.HasContinuationWord ||
		c.StartsWithReference ||
		(c.HasFollowUp && c.Length < FollowUpMaxLength)
}

// ExprRule evaluates a boolean expr-lang expression against a Continuation,
// e.g. `hasContinuationWord || (hasFollowUp && length < 80)`.
// Evaluation errors fall back to DefaultRule.
type ExprRule struct {
	source  string
	program *vm.Program
	logger  *zap.Logger
}

// NewExprRule compiles source. A nil logger is replaced with a no-op logger.
func NewExprRule(source string, logger *zap.Logger) (*ExprRule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	program, err := expr.Compile(source, expr.Env(Continuation{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile continuation rule: %w", err)
	}
	return &ExprRule{source: source, program: program, logger: logger}, nil
}

// Continues implements ContinuationRule.
func (r *ExprRule) Continues(c Continuation) bool {
	out, err := expr.Run(r.program, c)
	if err != nil {
		r.logger.Warn("continuation rule failed, using default",
			zap.String("rule", r.source),
			zap.Error(err),
		)
		return DefaultRule{}.Continues(c)
	}
	v, _ := out.(bool)
	return v
}

// String returns the rule source.
func (r *ExprRule) String() string {
	return r.source
}
