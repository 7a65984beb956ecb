// Package intent classifies chat messages into a fixed set of work categories.
//
// Classification is a deterministic, ordered rule table: rules are evaluated in
// priority order and the first matching rule decides the category. A message may satisfy
// several rules; only the first is reported. UI issue reports are checked before bug fixes
// because UI reports often contain the word "broken".
package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category is the classification result.
type Category string

const (
	CodeGeneration  Category = "code_generation"
	UiIssueReport   Category = "ui_issue_report"
	Refactoring     Category = "refactoring"
	BugFix          Category = "bug_fix"
	FeatureAddition Category = "feature_addition"
	Optimization    Category = "optimization"
	Unclear         Category = "unclear"
	None            Category = "none"
)

// Rule maps a predicate over normalized text to a category.
type Rule struct {
	Match    func(normalized string) bool
	Category Category
}

// objectWindow is how many tokens after a generation verb may hold its object noun.
const objectWindow = 4

//nolint:gochecknoglobals // immutable lookup tables
var (
	generationVerbs = wordSet("create", "write", "build", "implement", "generate", "make", "develop", "add")
	generationNouns = wordSet("function", "class", "component", "method", "api", "service", "module", "script")

	uiIssuePatterns = compileAll(
		`\b(should|must|needs? to)\s+be\s+(horizontally\s+|vertically\s+|properly\s+)?(aligned|centered|centred|positioned|placed|stacked)\b`,
		`\b(misaligned|overlapping|overlaps|off-center|off-centre|out of place|not aligned|not centered|cut off)\b`,
		`\b(layout|alignment|positioning|spacing|padding|margin)\b.*\b(wrong|off|broken|messed up|incorrect)\b`,
		`\bsection\s+should\s+be\s+removed\b`,
		`\b(tab|tabs|dropdown|dropdowns|drop-down)\b.*\b(broken|not working|doesn'?t work|not opening|not showing|unresponsive)\b`,
		`\bshould\s+have\s+been\s+(fixed|removed|positioned)\b`,
	)

	refactorPatterns = compileAll(
		`\b(refactor\w*|restructure|reorganize|reorganise|clean\s+up|simplify|optimize|optimise|consolidate|extract|rename|move|split|merge)\b.*\b(code|codebase|functions?|class(es)?|methods?|modules?|components?|files?|logic|variables?|services?|packages?|handlers?)\b`,
		`\bmake\b.*\bmore\s+(efficient|readable|maintainable)\b`,
	)

	bugFixPatterns = compileAll(
		`\b(fix|fixes|fixing|resolve|debug|solve)\b`,
		`\b(bugs?|errors?|issues?|problems?|crash(es|ed|ing)?|broken)\b`,
		`\bnot\s+working\b`,
	)

	featurePatterns = compileAll(
		`\b(add|include|implement|integrate)\b.*\b(logging|authentication|auth|authorization|validation|monitoring|caching|pagination|search|notifications?|analytics|localization|i18n|dark\s+mode|export|import|rate\s+limiting|metrics|tracing|support)\b`,
		`\bwe\s+need\s+(a\s+)?new\s+(feature|capability|functionality)\b`,
	)

	optimizationPatterns = compileAll(
		`\b(optimi[sz]e|improve|speed\s+up|reduce|minimi[sz]e)\b`,
		`\b(performance|speed|memory|cpu|bandwidth|latency)\b`,
		`\b(slow|slowly|sluggish|laggy|lags|takes\s+(too\s+|so\s+)?long)\b`,
	)

	unclearReplies = wordSet("help", "???", "??", "?", "huh", "what", "hmm", "hm", "ok", "okay", "idk", "...", "yes", "no", "test", "hi", "hey", "hello", "thanks")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp) func(string) bool {
	return func(s string) bool {
		for _, re := range patterns {
			if re.MatchString(s) {
				return true
			}
		}
		return false
	}
}

// DefaultRules returns the classifier's rule table in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Category: CodeGeneration, Match: isCodeGeneration},
		{Category: UiIssueReport, Match: anyMatch(uiIssuePatterns)},
		{Category: Refactoring, Match: anyMatch(refactorPatterns)},
		{Category: BugFix, Match: anyMatch(bugFixPatterns)},
		{Category: FeatureAddition, Match: anyMatch(featurePatterns)},
		{Category: Optimization, Match: anyMatch(optimizationPatterns)},
		{Category: Unclear, Match: isUnclear},
	}
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over rules; with no rules it uses DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first matching rule, or None.
func (c *Classifier) Classify(text string) Category {
	normalized := Normalize(text)
	for _, r := range c.rules {
		if r.Match(normalized) {
			return r.Category
		}
	}
	return None
}

// Normalize trims and lowercases text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Classify uses the default rule table.
func Classify(text string) Category {
	return defaultClassifier.Classify(text)
}

var defaultClassifier = NewClassifier() //nolint:gochecknoglobals

// IsCodeGeneration reports whether text asks for new code to be written.
func IsCodeGeneration(text string) bool {
	return isCodeGeneration(Normalize(text))
}

func isCodeGeneration(normalized string) bool {
	tokens := tokenize(normalized)
	for i, tok := range tokens {
		if !generationVerbs[tok] {
			continue
		}
		last := i + objectWindow
		if last >= len(tokens) {
			last = len(tokens) - 1
		}
		for j := i + 1; j <= last; j++ {
			if isGenerationObject(tokens[j]) {
				return true
			}
			if tokens[j] == "hello" && j+1 < len(tokens) && tokens[j+1] == "world" {
				return true
			}
		}
	}
	return false
}

func isGenerationObject(tok string) bool {
	if generationNouns[tok] {
		return true
	}
	if strings.HasSuffix(tok, "es") && generationNouns[strings.TrimSuffix(tok, "es")] {
		return true
	}
	return strings.HasSuffix(tok, "s") && generationNouns[strings.TrimSuffix(tok, "s")]
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_'
	})
}

func isUnclear(normalized string) bool {
	if unclearReplies[normalized] {
		return true
	}
	return utf8.RuneCountInString(normalized) <= 3
}
