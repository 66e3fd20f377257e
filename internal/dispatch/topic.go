package dispatch

import (
	"regexp"
	"strings"
)

// topicAliases folds the editorial vocabulary (French section names, legacy
// keys) onto the canonical topic keys used by subscriber rows.
var topicAliases = map[string]string{
	"international":            "international",
	"geopolitique":             "international",
	"sport":                    "sport",
	"sports":                   "sport",
	"finance":                  "finance",
	"marches_finance":          "finance",
	"marche_actions":           "stocks",
	"stock_market":             "stocks",
	"stocks":                   "stocks",
	"automotive":               "automotive",
	"industrie_automobile":     "automotive",
	"pharma":                   "pharma",
	"sante":                    "pharma",
	"industrie_pharmaceutique": "pharma",
	"ai":                       "ai",
	"technologie":              "ai",
	"culture":                  "culture",
}

// labelTopics maps slugged display labels back to topic keys, for bundles
// that carry a subjects catalogue instead of keys. French labels appear both
// with and without their accented characters since slugging drops non-ASCII.
var labelTopics = map[string]string{
	"sport":                    "sport",
	"sports":                   "sport",
	"international":            "international",
	"financeeconomie":          "finance",
	"financeconomie":           "finance",
	"financeeconomy":           "finance",
	"marcheactions":            "stocks",
	"marchactions":             "stocks",
	"stockmarket":              "stocks",
	"industrieautomobile":      "automotive",
	"automotiveindustry":       "automotive",
	"industriepharmaceutique":  "pharma",
	"pharmaceuticalindustry":   "pharma",
	"intelligenceartificielle": "ai",
	"artificialintelligence":   "ai",
	"culture":                  "culture",
}

// NormalizeTopicKey lowercases and underscores a raw topic value.
func NormalizeTopicKey(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
}

// MapTopic resolves an aliased topic key to its canonical form. Unknown keys
// pass through normalized.
func MapTopic(key string) string {
	normalized := NormalizeTopicKey(key)
	if mapped, ok := topicAliases[normalized]; ok {
		return mapped
	}
	return normalized
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func slugifyLabel(value string) string {
	return strings.ToLower(slugRe.ReplaceAllString(value, ""))
}

func labelToTopic(label string) string {
	return labelTopics[slugifyLabel(label)]
}
