package dispatch

import (
	"github.com/personewsap/personews/internal/client/models"
)

// SelectForSubscriber picks the articles for one subscriber's digest: for
// each topic row, up to ArticlesCount articles from the subscriber's
// language group.
//
// When the group carries editorial numbers, articles numbered 1..count are
// preferred; if fewer than count match, the remainder is filled from the
// rest of the group in order. Unnumbered groups just take the first count
// entries.
func SelectForSubscriber(grouped map[GroupKey][]Article, sub models.Subscriber) []Article {
	language := sub.Language
	if language == "" {
		language = "en"
	}

	var selected []Article
	for _, pref := range sub.Topics {
		key := GroupKey{Language: language, Topic: MapTopic(pref.TopicKey)}
		available := grouped[key]
		if len(available) == 0 {
			continue
		}

		count := pref.ArticlesCount
		if count < 1 {
			count = 1
		}

		selected = append(selected, pickArticles(available, count)...)
	}
	return selected
}

func pickArticles(available []Article, count int) []Article {
	hasNumbers := false
	for _, a := range available {
		if a.Number != 0 {
			hasNumbers = true
			break
		}
	}
	if !hasNumbers {
		if count > len(available) {
			count = len(available)
		}
		return available[:count]
	}

	picked := make([]Article, 0, count)
	taken := make(map[int]bool, count)
	for i, a := range available {
		if a.Number != 0 && a.Number <= count {
			picked = append(picked, a)
			taken[i] = true
		}
	}
	for i, a := range available {
		if len(picked) >= count {
			break
		}
		if !taken[i] {
			picked = append(picked, a)
			taken[i] = true
		}
	}
	if len(picked) > count {
		picked = picked[:count]
	}
	return picked
}
