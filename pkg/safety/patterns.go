package safety

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

// minPatternsPerCategory guards against the table regressing below its
// designed size.
const minPatternsPerCategory = 10

// Rule is one compiled case-insensitive matching rule. Source keeps the
// literal pattern text for audit logging.
type Rule struct {
	Source string
	re     *regexp.Regexp
}

// Matches reports whether the rule matches the query.
func (r Rule) Matches(query string) bool {
	return r.re.MatchString(query)
}

type patternFile struct {
	Categories map[string]struct {
		Response string   `yaml:"response"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"categories"`
}

// loadPatternTable parses and compiles the embedded pattern table. Patterns
// are plain RE2 expressions, so evaluation cannot catastrophically backtrack
// on pathological input.
func loadPatternTable() (map[Category][]Rule, map[Category]string, error) {
	var pf patternFile
	if err := yaml.Unmarshal(patternsYAML, &pf); err != nil {
		return nil, nil, fmt.Errorf("safety: parse pattern table: %w", err)
	}

	rules := make(map[Category][]Rule, len(CategoryOrder))
	responses := make(map[Category]string, len(CategoryOrder))

	for name, entry := range pf.Categories {
		cat := Category(name)
		if !cat.Valid() {
			return nil, nil, fmt.Errorf("safety: unknown category %q in pattern table", name)
		}
		if entry.Response == "" {
			return nil, nil, fmt.Errorf("safety: category %q has no safe response", name)
		}
		if len(entry.Patterns) < minPatternsPerCategory {
			return nil, nil, fmt.Errorf("safety: category %q has %d patterns, minimum %d",
				name, len(entry.Patterns), minPatternsPerCategory)
		}

		compiled := make([]Rule, 0, len(entry.Patterns))
		for _, src := range entry.Patterns {
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				return nil, nil, fmt.Errorf("safety: compile pattern %q: %w", src, err)
			}
			compiled = append(compiled, Rule{Source: src, re: re})
		}
		rules[cat] = compiled
		responses[cat] = entry.Response
	}

	for _, cat := range CategoryOrder {
		if _, ok := rules[cat]; !ok {
			return nil, nil, fmt.Errorf("safety: category %q missing from pattern table", cat)
		}
	}

	return rules, responses, nil
}
