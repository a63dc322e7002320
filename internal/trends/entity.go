package trends

import (
	"sort"
	"strings"
	"unicode"
)

// Entity is a cross-platform subject extracted from a day's trends:
// the same keyword seen across regions and platforms, with its combined
// reach and dominant sentiment.
type Entity struct {
	Name          string   `json:"entity_name"`
	Type          string   `json:"entity_type"`
	Keywords      []string `json:"keywords"`
	TotalMentions int      `json:"total_mentions"`
	Regions       []string `json:"regions"`
	Context       string   `json:"context"`
	Sentiment     string   `json:"sentiment"`
	Role          string   `json:"role"`
}

// Word lists behind the entity-type heuristic. These are tuning data
// carried over from the production dashboard, not inferred rules.
var (
	politicalWords = []string{"election", "government", "minister"}
	businessWords  = []string{"company", "stock", "market"}
)

// ClassifyEntity guesses an entity type from its keyword: short
// capitalized keywords read as people, '#' marks hashtags, and two word
// lists catch political and business subjects. Everything else is a plain
// keyword.
func ClassifyEntity(keyword string) string {
	if keyword == "" {
		return "keyword"
	}

	lower := strings.ToLower(keyword)
	first := []rune(keyword)[0]

	switch {
	case len(strings.Fields(keyword)) <= 2 && unicode.IsUpper(first):
		return "person"
	case strings.Contains(keyword, "#"):
		return "hashtag"
	case containsAny(lower, politicalWords):
		return "political"
	case containsAny(lower, businessWords):
		return "business"
	}
	return "keyword"
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ExtractEntities groups normalized trends from both platforms by keyword
// and builds one entity per distinct keyword, ordered by total mentions
// (descending). Dominant sentiment is the most frequent sentiment label in
// the group; ties resolve to the label seen first.
func ExtractEntities(all []Trend) []Entity {
	groups := make(map[string][]*Trend)
	order := make([]string, 0)
	for i := range all {
		k := all[i].Keyword
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], &all[i])
	}

	entities := make([]Entity, 0, len(order))
	for _, keyword := range order {
		group := groups[keyword]

		var regions, categories []string
		var sentiments []string
		total := 0
		context := ""
		for _, t := range group {
			regions = appendUnique(regions, t.Region)
			categories = appendUnique(categories, t.Category)
			total += t.Volume()
			if s := t.Sentiment(); s != "" {
				sentiments = append(sentiments, s)
			}
			if context == "" {
				context = t.Context
			}
		}

		role := "unknown"
		if len(categories) > 0 {
			role = categories[0]
		}

		entities = append(entities, Entity{
			Name:          keyword,
			Type:          ClassifyEntity(keyword),
			Keywords:      []string{keyword},
			TotalMentions: total,
			Regions:       regions,
			Context:       context,
			Sentiment:     dominantSentiment(sentiments),
			Role:          role,
		})
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].TotalMentions > entities[j].TotalMentions
	})
	return entities
}

func dominantSentiment(sentiments []string) string {
	if len(sentiments) == 0 {
		return "curious"
	}
	counts := make(map[string]int)
	best, bestN := sentiments[0], 0
	for _, s := range sentiments {
		counts[s]++
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
