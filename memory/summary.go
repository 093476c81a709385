package memory

import (
	"sort"
	"strings"
	"unicode"

	"github.com/GarryCodespace/Jarvis/core"
	"go.uber.org/zap"
)

// MaxSummaryTopics is the number of topic keywords in a Summary.
const MaxSummaryTopics = 5

// Summary is a compact description of a set of events.
type Summary struct {
	Topics           []string `json:"topics"`
	Skills           []string `json:"skills"`
	HasCode          bool     `json:"hasCode"`
	HasImageAnalysis bool     `json:"hasImageAnalysis"`
	EventCount       int      `json:"eventCount"`
	TimeSpan         int64    `json:"timeSpan"` // milliseconds
}

func emptySummary() Summary {
	return Summary{Topics: []string{}, Skills: []string{}}
}

// summarize builds a Summary. It never panics: any failure yields an empty
// summary and is logged.
func summarize(evs []core.Event, logger *zap.Logger) (s Summary) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("summary generation failed", zap.Any("panic", r))
			s = emptySummary()
		}
	}()

	s = emptySummary()
	if len(evs) == 0 {
		return s
	}

	seenSkill := make(map[string]bool)
	texts := make([]string, 0, len(evs))
	for _, ev := range evs {
		if ev.Skill != "" && !seenSkill[ev.Skill] {
			seenSkill[ev.Skill] = true
			s.Skills = append(s.Skills, ev.Skill)
		}
		if containsCode(ev.Content) {
			s.HasCode = true
		}
		if ev.Category == core.CategoryCapture || ev.Action == core.ActionImageAnalysis {
			s.HasImageAnalysis = true
		}
		if ev.Role == core.RoleUser || ev.Role == core.RoleModel {
			texts = append(texts, ev.Content)
		}
	}

	s.Topics = topKeywords(texts, MaxSummaryTopics)
	s.EventCount = len(evs)
	if span := evs[len(evs)-1].Timestamp.Sub(evs[0].Timestamp); span > 0 {
		s.TimeSpan = span.Milliseconds()
	}
	return s
}

var codeMarkers = []string{
	"```", "func ", "def ", "class ", "function ", "return ", "import ",
	"#include", "public static", "=>", "console.log", "println",
}

// containsCode reports whether text looks like it carries source code.
func containsCode(text string) bool {
	for _, marker := range codeMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "your": true, "all": true, "any": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "him": true, "his": true, "how": true, "its": true, "may": true,
	"new": true, "now": true, "see": true, "two": true, "who": true, "did": true,
	"does": true, "get": true, "let": true, "put": true, "say": true, "she": true,
	"too": true, "use": true, "this": true, "that": true, "with": true, "from": true,
	"they": true, "them": true, "then": true, "than": true, "what": true, "when": true,
	"where": true, "which": true, "will": true, "would": true, "could": true,
	"should": true, "there": true, "their": true, "these": true, "those": true,
	"about": true, "into": true, "just": true, "like": true, "some": true,
	"also": true, "been": true, "were": true, "here": true, "more": true,
	"very": true, "want": true, "know": true, "please": true, "thanks": true,
	"explain": true, "tell": true, "show": true, "give": true, "make": true,
	"why": true, "yes": true, "okay": true, "sure": true, "is": true,
}

// topKeywords returns up to n of the most frequent non-stopword words of at
// least 3 letters. Ties keep first-seen order.
func topKeywords(texts []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if len([]rune(w)) < 3 || stopwords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}
