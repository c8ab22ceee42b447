package cache

import (
	"regexp"
	"strings"

	"github.com/pawdesk/pawdesk/plugin/similarity"
)

// cannedAnswer is a curated response for a known high-frequency topic,
// matched by exact substring before any cache lookup happens.
type cannedAnswer struct {
	triggers []string
	answer   string
}

var cannedAnswers = []cannedAnswer{
	{
		triggers: []string{"vaccination schedule", "vaccine schedule", "shot schedule"},
		answer: "Puppies start core vaccines at 6-8 weeks with boosters every 3-4 weeks " +
			"until 16 weeks, then a booster at one year. Kittens follow a similar " +
			"schedule. Adult pets need boosters every 1-3 years depending on the vaccine.",
	},
	{
		triggers: []string{"emergency signs", "signs of emergency", "when is it an emergency"},
		answer: "Seek immediate care for difficulty breathing, repeated vomiting, " +
			"collapse, seizures, suspected poisoning, bloated abdomen, or inability " +
			"to urinate. When in doubt, call us right away.",
	},
	{
		triggers: []string{"toxic foods", "foods are toxic", "poisonous foods"},
		answer: "Common toxic foods include chocolate, grapes and raisins, onions, " +
			"garlic, xylitol (sugar-free gum), alcohol, and macadamia nuts. If your " +
			"pet ate any of these, contact us or poison control immediately.",
	},
}

// categoryPattern maps a regex to a topic category whose most recent
// generated answer is cached under a category key.
type categoryPattern struct {
	name    string
	pattern *regexp.Regexp
}

var categoryPatterns = []categoryPattern{
	{"vaccination", regexp.MustCompile(`(?i)\b(vaccin|immuniz|booster|rabies shot)`)},
	{"emergency", regexp.MustCompile(`(?i)\b(emergency|urgent|poison(ed)?|seizure|collapse|can'?t breathe)`)},
	{"toxic-food", regexp.MustCompile(`(?i)\b(toxic|chocolate|grapes?|xylitol|onion|ate something)`)},
	{"parasite", regexp.MustCompile(`(?i)\b(flea|tick|worm|heartworm|parasite|deworm)`)},
	{"spay-neuter", regexp.MustCompile(`(?i)\b(spay|neuter|fix(ing)? (my|the)|steriliz)`)},
}

func categoryKey(name string) string {
	return "category:" + name
}

// categoryOf returns the first matching topic category for the question.
func categoryOf(question string) (string, bool) {
	for _, cp := range categoryPatterns {
		if cp.pattern.MatchString(question) {
			return cp.name, true
		}
	}
	return "", false
}

// FindSimilar tries to answer the question without invoking the generator:
// canned answers first, then the per-category cached answer, then a fuzzy
// Levenshtein match against the questions resident in the hot tier.
// Only used for open Q&A, never for booking fields.
func (c *ResponseCache) FindSimilar(question string) ([]byte, bool) {
	normalized := similarity.Normalize(question)

	for _, ca := range cannedAnswers {
		for _, trigger := range ca.triggers {
			if strings.Contains(normalized, trigger) {
				c.hits.Add(1)
				return []byte(ca.answer), true
			}
		}
	}

	if category, ok := categoryOf(question); ok {
		if value, ok := c.lookup(categoryKey(category)); ok {
			c.hits.Add(1)
			return value, true
		}
	}

	now := c.now()
	var candidates []string
	byQuestion := make(map[string]*Entry)
	for _, e := range c.hot.Entries() {
		if e.Question == "" || e.Expired(now) {
			continue
		}
		if _, seen := byQuestion[e.Question]; seen {
			continue
		}
		candidates = append(candidates, e.Question)
		byQuestion[e.Question] = e
	}
	if best, _, ok := similarity.BestMatch(question, candidates, c.cfg.FuzzyThreshold); ok {
		c.hits.Add(1)
		return byQuestion[best].Value, true
	}

	return nil, false
}
