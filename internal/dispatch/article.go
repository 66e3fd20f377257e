// Package dispatch assembles and sends the daily newsletter: it loads an
// articles bundle, matches articles to each opted-in subscriber's topic rows,
// and delivers one digest per subscriber.
package dispatch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Article is a normalized bundle entry. Number is the editorial position
// within its topic (1-based); 0 means the entry carries no number.
type Article struct {
	Language string
	Topic    string
	Title    string
	Content  string
	Sources  []string
	Number   int
}

// GroupKey addresses one digest section: articles of one topic in one
// language.
type GroupKey struct {
	Language string
	Topic    string
}

// rawArticle tolerates the field aliases seen in bundles from different
// editorial tools.
type rawArticle struct {
	Language  string          `json:"language"`
	Lang      string          `json:"lang"`
	SubjectID json.RawMessage `json:"subject_id"`
	Subject   json.RawMessage `json:"subject"`
	Topic     json.RawMessage `json:"topic"`
	Title     string          `json:"title"`
	Headline  string          `json:"headline"`
	Content   string          `json:"content"`
	Body      string          `json:"body"`
	Text      string          `json:"text"`
	Sources   json.RawMessage `json:"sources"`
	Links     json.RawMessage `json:"links"`
	URLs      json.RawMessage `json:"urls"`
	NumberA   json.RawMessage `json:"article_number"`
	NumberB   json.RawMessage `json:"number"`
	NumberC   json.RawMessage `json:"index"`
}

type rawSubject struct {
	ID     string            `json:"id"`
	Labels map[string]string `json:"-"`
}

func (s *rawSubject) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.ID = m["id"]
	delete(m, "id")
	s.Labels = m
	return nil
}

type rawBundle struct {
	Subjects []rawSubject      `json:"subjects"`
	Articles []json.RawMessage `json:"articles"`
	Items    []json.RawMessage `json:"items"`
}

// LoadBundle parses an articles bundle. Two shapes are accepted: a plain
// JSON array of articles, or an object with an "articles" (or "items") list
// plus an optional "subjects" catalogue whose localized labels are mapped
// back to topic keys. Entries missing a language, topic, title, or content
// are dropped.
func LoadBundle(data []byte) ([]Article, error) {
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		var raws []rawArticle
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("failed to parse articles bundle: %w", err)
		}
		return normalizeAll(raws, nil), nil
	}

	var bundle rawBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse articles bundle: %w", err)
	}

	items := bundle.Articles
	if len(items) == 0 {
		items = bundle.Items
	}

	subjects := make(map[string]rawSubject, len(bundle.Subjects))
	for _, s := range bundle.Subjects {
		if s.ID != "" {
			subjects[s.ID] = s
		}
	}

	raws := make([]rawArticle, 0, len(items))
	for _, item := range items {
		var r rawArticle
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		raws = append(raws, r)
	}

	articles := normalizeAll(raws, subjects)
	if len(articles) == 0 {
		return nil, fmt.Errorf("no valid articles found in bundle")
	}
	return articles, nil
}

func normalizeAll(raws []rawArticle, subjects map[string]rawSubject) []Article {
	articles := make([]Article, 0, len(raws))
	for _, r := range raws {
		if a, ok := normalize(r, subjects); ok {
			articles = append(articles, a)
		}
	}
	return articles
}

func normalize(r rawArticle, subjects map[string]rawSubject) (Article, bool) {
	language := strings.ToLower(strings.TrimSpace(firstNonEmpty(r.Language, r.Lang)))

	subjectID := firstRawString(r.SubjectID, r.Subject, r.Topic)
	topic := NormalizeTopicKey(subjectID)
	if s, ok := subjects[subjectID]; ok {
		label := firstNonEmpty(s.Labels[language], s.Labels["en"], subjectID)
		if mapped := labelToTopic(label); mapped != "" {
			topic = mapped
		} else {
			topic = NormalizeTopicKey(label)
		}
	}

	a := Article{
		Language: language,
		Topic:    topic,
		Title:    firstNonEmpty(r.Title, r.Headline),
		Content:  firstNonEmpty(r.Content, r.Body, r.Text),
		Sources:  firstStringList(r.Sources, r.Links, r.URLs),
		Number:   parseArticleNumber(firstRaw(r.NumberA, r.NumberB, r.NumberC)),
	}
	if a.Language == "" || a.Topic == "" || a.Title == "" || a.Content == "" {
		return Article{}, false
	}
	return a, true
}

// GroupArticles indexes articles by (language, mapped topic) and sorts each
// group by article number, unnumbered entries last.
func GroupArticles(articles []Article) map[GroupKey][]Article {
	grouped := make(map[GroupKey][]Article)
	for _, a := range articles {
		if a.Language == "" || a.Topic == "" {
			continue
		}
		key := GroupKey{Language: a.Language, Topic: MapTopic(a.Topic)}
		grouped[key] = append(grouped[key], a)
	}
	for key := range grouped {
		group := grouped[key]
		sort.SliceStable(group, func(i, j int) bool {
			return sortNumber(group[i]) < sortNumber(group[j])
		})
	}
	return grouped
}

func sortNumber(a Article) int {
	if a.Number == 0 {
		return 999
	}
	return a.Number
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseArticleNumber accepts either a JSON number or a string containing one
// ("Article 3"). Anything else yields 0.
func parseArticleNumber(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	match := digitsRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if len(r) > 0 && string(r) != "null" {
			return r
		}
	}
	return nil
}

// firstRawString decodes the first present alias as a string; bare numbers
// are stringified.
func firstRawString(raws ...json.RawMessage) string {
	raw := firstRaw(raws...)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// firstStringList decodes the first present alias as either a list of
// strings or a single string.
func firstStringList(raws ...json.RawMessage) []string {
	raw := firstRaw(raws...)
	if raw == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}
