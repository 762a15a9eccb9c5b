package intent

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Capitalised instrument names: "Employment Insurance Act",
	// "Imaginary Act of 2099", "Budget Implementation Act, 2023".
	instrumentPattern = regexp.MustCompile(`\b\p{Lu}[\p{L}'’.-]*(?:\s+(?:\p{Lu}[\p{L}'’.-]*|of|the|and|for|on|respecting|to|la|le|des|du|\(\p{Lu}+\)))*?\s+(?:Act|Acts|Regulations?|Code|Rules|Order|Charter|Directive|Convention|Bylaw|By-law|Ordinance|Statute)(?:\s+of\s+\d{4}|,?\s+\d{4}(?:,\s+No\.\s+\d+)?)?\b`)
	citationPattern   = regexp.MustCompile(`\b(?:SOR|SI|C\.R\.C\.|S\.C\.|R\.S\.C\.)\s*[/,]?\s*\d{2,4}(?:[-/]\d+)?(?:,\s*c\.\s*[\w-]+)?`)
	sectionPattern    = regexp.MustCompile(`(?i)\b(?:section|sections|s\.|ss\.|subsection|paragraph)\s*(\d+(?:\.\d+)?(?:\(\d+\))*(?:\([a-z]\))?)`)
	quotedPattern     = regexp.MustCompile(`["“]([^"”]{2,80})["”]`)
	dateTrailer       = regexp.MustCompile(`(?i)\s+(?:in|since|during|before|after|from|until)\s+(?:\d{4}|january|february|march|april|may|june|july|august|september|october|november|december)\b.*$`)

	leadingNoise = map[string]bool{
		"what": true, "which": true, "who": true, "how": true, "when": true, "list": true,
		"find": true, "show": true, "name": true, "does": true, "do": true, "is": true,
		"are": true, "was": true, "were": true, "the": true, "a": true, "an": true,
		"to": true, "any": true, "all": true, "under": true,
	}
	// words that open an adjunct rather than the object of a relation cue
	adjunctOpeners = map[string]bool{
		"in": true, "on": true, "since": true, "during": true, "after": true, "before": true,
		"by": true, "from": true, "between": true, "at": true, "over": true, "within": true,
		"recently": true, "last": true, "this": true, "it": true, "them": true, "anything": true,
		"something": true, "that": true,
	}
	mentionStops = []string{
		"?", "!", ";", " directly", " indirectly", " transitively", " recursively", " either",
		" including", " and its ", ", and ", " since ", " during ", " in force", " as of ",
		" at any level", " after ", " before ",
	}
)

// cleanMention trims the object that follows a relation cue down to the
// entity it names, or "" when what follows is not an entity.
func cleanMention(s string) string {
	s = dateTrailer.ReplaceAllString(strings.TrimSpace(s), "")
	cut := len(s)
	folded := foldCase(s)
	for _, stop := range mentionStops {
		if i := strings.Index(folded, stop); i >= 0 && i < cut {
			cut = i
		}
	}
	s = strings.TrimSpace(s[:cut])
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != ')'
	})

	words := strings.Fields(s)
	for len(words) > 0 {
		w := strings.ToLower(words[0])
		if adjunctOpeners[w] {
			return ""
		}
		if leadingNoise[w] {
			words = words[1:]
			continue
		}
		break
	}
	return strings.Join(words, " ")
}

// extractEntities finds instrument names, citations, sections and quoted
// terms in question order.
func extractEntities(text string) []string {
	type found struct {
		pos  int
		text string
	}
	var all []found
	for _, loc := range instrumentPattern.FindAllStringIndex(text, -1) {
		name := trimLeadingNoise(text[loc[0]:loc[1]], loc[0] == 0)
		if name != "" {
			all = append(all, found{loc[0], name})
		}
	}
	for _, loc := range citationPattern.FindAllStringIndex(text, -1) {
		all = append(all, found{loc[0], strings.TrimSpace(text[loc[0]:loc[1]])})
	}
	for _, m := range sectionPattern.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, found{m[0], "section " + text[m[2]:m[3]]})
	}
	for _, m := range quotedPattern.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, found{m[0], strings.TrimSpace(text[m[2]:m[3]])})
	}

	// stable insertion by position keeps the order the question uses
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].pos < all[j-1].pos; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	out := []string{}
	seen := map[string]bool{}
	for _, f := range all {
		key := strings.ToLower(f.text)
		if f.text == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f.text)
	}
	return out
}

// trimLeadingNoise drops capitalised words the instrument pattern swallows
// at the start of a sentence: "Which Regulations ...", "Compare the ...".
func trimLeadingNoise(name string, sentenceStart bool) string {
	words := strings.Fields(name)
	if sentenceStart && len(words) > 1 && !startsUpper(words[1]) {
		words = words[1:]
		for len(words) > 1 && !startsUpper(words[0]) {
			words = words[1:]
		}
	}
	for len(words) > 1 && leadingNoise[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) == 1 {
		return ""
	}
	return strings.Join(words, " ")
}

func startsUpper(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}
