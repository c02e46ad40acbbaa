package annotate

import "strings"

const DefaultMaxSuggestions = 5

// Vocabulary is the list of class names known to the detection model
type Vocabulary struct {
	classes []string
	lower   []string
}

func NewVocabulary(classes []string) *Vocabulary {
	v := &Vocabulary{
		classes: append([]string{}, classes...),
		lower:   make([]string, len(classes)),
	}
	for i, c := range classes {
		v.lower[i] = strings.ToLower(c)
	}
	return v
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.classes)
}

func (v *Vocabulary) Classes() []string {
	if v == nil {
		return nil
	}
	return append([]string{}, v.classes...)
}

// ClassID returns the index of an exact class name match
func (v *Vocabulary) ClassID(name string) (int, bool) {
	if v == nil {
		return 0, false
	}
	for i, c := range v.classes {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Suggestions returns up to limit classes whose name contains query (case insensitive).
// An empty query, or a query that matches nothing, yields the start of the whole vocabulary.
func (v *Vocabulary) Suggestions(query string, limit int) []string {
	if v.Len() == 0 {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultMaxSuggestions
	}
	query = strings.ToLower(strings.TrimSpace(query))
	matches := []string{}
	if query != "" {
		for i, c := range v.lower {
			if strings.Contains(c, query) {
				matches = append(matches, v.classes[i])
				if len(matches) == limit {
					break
				}
			}
		}
	}
	if len(matches) == 0 {
		matches = append(matches, v.classes[:min(limit, len(v.classes))]...)
	}
	return matches
}
