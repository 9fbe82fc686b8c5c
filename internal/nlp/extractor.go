package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// RegexExtractor recognizes hospital-domain entities with pattern tables.
// It is deliberately self-contained so extraction keeps working when no
// external tagger is reachable.
type RegexExtractor struct {
	patterns map[Category][]*regexp.Regexp
}

// NewRegexExtractor compiles the built-in pattern tables.
func NewRegexExtractor() *RegexExtractor {
	raw := map[Category][]string{
		CategorySymptom: {
			`(head|stomach|back|chest|throat)\s?(ache|pain)`,
			`(head|stomach|back|chest|throat|arm|leg|ear|tooth)\s(hurts|aches)`,
			`(feeling|feel)\s(sick|nauseous|dizzy|tired|weak)`,
			`(have|having)\s(a\s)?(fever|cough|cold|flu|anxiety|depression|rash|headache|migraine)`,
		},
		CategoryDepartment: {
			`(cardiology|neurology|pediatrics|orthopedics|gynecology|dermatology|oncology|maternity|ent|dental)`,
			`(heart|brain|child|bone|skin|cancer|ear|tooth)\s?(specialist|department|clinic|center)`,
		},
		CategoryDoctor: {
			`dr\.?\s[a-z]+`,
			`doctor\s[a-z]+`,
		},
		CategoryDate: {
			`\b(today|tomorrow)\b`,
			`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
			`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`,
		},
		CategoryTime: {
			`\b\d{1,2}:\d{2}(?:\s?(?:am|pm))?\b`,
			`\b\d{1,2}\s?(?:am|pm)\b`,
			`\b(morning|afternoon|evening|noon)\b`,
		},
		CategoryDateTime: {
			`(next|this)\s(morning|afternoon|evening|week|month)`,
		},
		CategoryUrgency: {
			`(emergency|urgent|immediate|asap|critical)`,
			`(life[\s-]threatening|severe|serious)`,
		},
		CategoryPreviousVisit: {
			`\b(yes|i have|been there before|visited before|i'?ve visited)\b`,
			`\b(no|i haven'?t|never been|first time)\b`,
		},
		CategoryPerson: {
			`(?:my name is|i'?m called|this is)\s+([a-z]+)`,
		},
	}

	compiled := make(map[Category][]*regexp.Regexp, len(raw))
	for cat, pats := range raw {
		for _, p := range pats {
			compiled[cat] = append(compiled[cat], regexp.MustCompile(p))
		}
	}
	return &RegexExtractor{patterns: compiled}
}

// Extract runs every pattern table over the lowercased text. The context is
// accepted for interface symmetry with remote taggers; extraction itself
// never blocks.
func (x *RegexExtractor) Extract(_ context.Context, text string) (Entities, error) {
	lowered := strings.ToLower(text)
	entities := Entities{}

	for cat, pats := range x.patterns {
		var values []string
		for _, re := range pats {
			for _, m := range re.FindAllStringSubmatch(lowered, -1) {
				v := m[0]
				// A single capture group narrows the match (e.g. the bare
				// name after "my name is").
				if re.NumSubexp() == 1 && m[1] != "" {
					v = m[1]
				}
				v = strings.TrimSpace(v)
				if v != "" {
					values = append(values, v)
				}
			}
		}
		if cleaned := cleanValues(values); len(cleaned) > 0 {
			entities[cat] = cleaned
		}
	}
	return entities, nil
}

// cleanValues deduplicates and drops values fully contained in a longer one.
func cleanValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool { return len(unique[i]) > len(unique[j]) })

	var kept []string
	for i, v := range unique {
		contained := false
		for j, other := range unique {
			if i != j && len(other) >= len(v) && strings.Contains(other, v) && other != v {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, v)
		}
	}
	return kept
}

var (
	visitNoRe  = regexp.MustCompile(`\b(no|never|not|first time|haven'?t)\b`)
	visitYesRe = regexp.MustCompile(`\b(yes|visited|been|have)\b`)
)

// ResolvePreviousVisit collapses raw previous-visit phrases to "yes" or "no".
// Negative phrasing wins over affirmative words inside the same phrase.
func ResolvePreviousVisit(phrases []string) string {
	for _, p := range phrases {
		p = strings.ToLower(p)
		if visitNoRe.MatchString(p) {
			return "no"
		}
		if visitYesRe.MatchString(p) {
			return "yes"
		}
	}
	return ""
}
