package models

// Article quota bounds per topic.
const (
	MinArticlesCount = 1
	MaxArticlesCount = 3
)

// TopicKeys is the fixed, ordered topic catalogue. Topic rows only ever
// reference keys from this set.
var TopicKeys = []string{
	"sport",
	"international",
	"finance",
	"stocks",
	"automotive",
	"pharma",
	"ai",
	"culture",
}

var topicLabels = map[string]map[string]string{
	"fr": {
		"sport":         "Sport",
		"international": "International",
		"finance":       "Finance / Économie",
		"stocks":        "Marché actions",
		"automotive":    "Industrie automobile",
		"pharma":        "Industrie pharmaceutique",
		"ai":            "Intelligence artificielle",
		"culture":       "Culture",
	},
	"en": {
		"sport":         "Sports",
		"international": "International",
		"finance":       "Finance / Economy",
		"stocks":        "Stock Market",
		"automotive":    "Automotive industry",
		"pharma":        "Pharmaceutical industry",
		"ai":            "Artificial Intelligence",
		"culture":       "Culture",
	},
}

// IsKnownTopic reports whether key belongs to the fixed topic catalogue.
func IsKnownTopic(key string) bool {
	for _, k := range TopicKeys {
		if k == key {
			return true
		}
	}
	return false
}

// TopicLabel returns the display label for a topic in the given language,
// falling back to English and finally to the raw key.
func TopicLabel(key, language string) string {
	if language != "fr" {
		language = "en"
	}
	if label, ok := topicLabels[language][key]; ok {
		return label
	}
	if label, ok := topicLabels["en"][key]; ok {
		return label
	}
	return key
}

// ClampArticlesCount forces a quota into the [MinArticlesCount,
// MaxArticlesCount] range.
func ClampArticlesCount(n int) int {
	if n < MinArticlesCount {
		return MinArticlesCount
	}
	if n > MaxArticlesCount {
		return MaxArticlesCount
	}
	return n
}
