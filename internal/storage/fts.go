package storage

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Benny93/fluentgen/internal/description"
)

var (
	separatorPattern = regexp.MustCompile(`[_\.\-\s]+`)
	camelPattern     = regexp.MustCompile(`([a-z])([A-Z])`)
	acronymPattern   = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	letterDigit      = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetter      = regexp.MustCompile(`(\d)([a-zA-Z])`)
)

// Field weights: a class-name hit ranks above a property hit, which ranks
// above a hit on a property type.
const (
	weightClass    = 3
	weightProperty = 2
	weightType     = 1
)

// tokenize splits text into searchable tokens.
// Handles camelCase, snake_case, dot notation, and other code patterns.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	tokens := make(map[string]bool)

	// Add full text as lowercase token
	tokens[strings.ToLower(text)] = true

	// Split on common separators (_, ., -, space)
	for _, part := range separatorPattern.Split(text, -1) {
		tokens[strings.ToLower(part)] = true
	}

	// Split camelCase: "TeamMates" -> "Team", "Mates"; "URLValue" -> "URL", "Value"
	camelSplit := acronymPattern.ReplaceAllString(text, "$1 $2")
	camelSplit = camelPattern.ReplaceAllString(camelSplit, "$1 $2")
	for _, part := range strings.Fields(separatorPattern.ReplaceAllString(camelSplit, " ")) {
		tokens[strings.ToLower(part)] = true
	}

	// Split on number boundaries: "HTTP2" -> "HTTP", "2"
	numSplit := letterDigit.ReplaceAllString(text, "$1 $2")
	numSplit = digitLetter.ReplaceAllString(numSplit, "$1 $2")
	for _, part := range strings.Fields(numSplit) {
		tokens[strings.ToLower(part)] = true
	}

	result := make([]string, 0, len(tokens))
	for token := range tokens {
		if token != "" {
			result = append(result, token)
		}
	}
	sort.Strings(result)
	return result
}

type indexedDoc struct {
	className string
	filePath  string
	postings  map[string]int
	// property tokens, to report which properties matched
	properties map[string][]string
}

// tokenIndex is an in-memory inverted index over stored descriptions,
// rebuilt from the store when a backend is opened.
type tokenIndex struct {
	postings map[string]map[string]int // token -> qualified name -> weight
	docs     map[string]*indexedDoc
}

func newTokenIndex() *tokenIndex {
	return &tokenIndex{
		postings: make(map[string]map[string]int),
		docs:     make(map[string]*indexedDoc),
	}
}

func (ix *tokenIndex) add(filePath string, desc *description.ClassDescription) {
	qn := desc.QualifiedName()
	ix.remove(qn)

	class := desc.ClassType()
	doc := &indexedDoc{
		className:  class.Name,
		filePath:   filePath,
		postings:   make(map[string]int),
		properties: make(map[string][]string),
	}

	addTokens := func(text string, weight int) []string {
		tokens := tokenize(text)
		for _, token := range tokens {
			if doc.postings[token] < weight {
				doc.postings[token] = weight
			}
		}
		return tokens
	}

	addTokens(class.Name, weightClass)
	addTokens(qn, weightClass)
	for _, g := range desc.Getters() {
		for _, token := range addTokens(g.PropertyName, weightProperty) {
			doc.properties[token] = append(doc.properties[token], g.PropertyName)
		}
		addTokens(g.Type.TypeName.Name, weightType)
		if g.Type.ElementTypeName != nil {
			addTokens(g.Type.ElementTypeName.Name, weightType)
		}
	}

	for token, weight := range doc.postings {
		if ix.postings[token] == nil {
			ix.postings[token] = make(map[string]int)
		}
		ix.postings[token][qn] = weight
	}
	ix.docs[qn] = doc
}

func (ix *tokenIndex) remove(qualifiedName string) bool {
	doc, ok := ix.docs[qualifiedName]
	if !ok {
		return false
	}
	for token := range doc.postings {
		delete(ix.postings[token], qualifiedName)
		if len(ix.postings[token]) == 0 {
			delete(ix.postings, token)
		}
	}
	delete(ix.docs, qualifiedName)
	return true
}

func (ix *tokenIndex) len() int {
	return len(ix.docs)
}

// search scores every document by the summed weights of the query tokens
// it contains. Results are ordered by score, then qualified name.
func (ix *tokenIndex) search(query string, limit int) []SearchResult {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return []SearchResult{}
	}

	scores := make(map[string]int)
	for _, token := range queryTokens {
		for qn, weight := range ix.postings[token] {
			scores[qn] += weight
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for qn, score := range scores {
		doc := ix.docs[qn]
		results = append(results, SearchResult{
			QualifiedName: qn,
			ClassName:     doc.className,
			FilePath:      doc.filePath,
			Score:         float64(score),
			Properties:    doc.matchedProperties(queryTokens),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].QualifiedName < results[j].QualifiedName
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (d *indexedDoc) matchedProperties(queryTokens []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, token := range queryTokens {
		for _, property := range d.properties[token] {
			if !seen[property] {
				seen[property] = true
				out = append(out, property)
			}
		}
	}
	sort.Strings(out)
	return out
}
