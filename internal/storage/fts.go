package storage

import (
	"strings"
	"unicode"
)

var ftsStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "what": true, "when": true, "which": true, "who": true,
	"with": true, "my": true, "me": true, "there": true, "this": true, "that": true,
}

// ftsQuery turns free text into an FTS5 expression that ORs quoted terms,
// so user punctuation never reaches the FTS5 query parser.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var kept []string
	seen := map[string]bool{}
	for _, w := range words {
		if ftsStopwords[w] || seen[w] || isSingleLetter(w) {
			continue
		}
		seen[w] = true
		kept = append(kept, `"`+w+`"`)
	}
	if len(kept) == 0 {
		// question made only of stopwords: search them as-is
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				kept = append(kept, `"`+w+`"`)
			}
		}
	}
	return strings.Join(kept, " OR ")
}

func isSingleLetter(w string) bool {
	r := []rune(w)
	return len(r) == 1 && unicode.IsLetter(r[0])
}
