package service

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	wordRe       = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"with": {}, "and": {}, "is": {}, "to": {}, "at": {}, "by": {}, "using": {},
	"based": {}, "的": {}, "和": {}, "是": {}, "在": {}, "有": {}, "与": {}, "了": {}, "为": {},
}

// normalizeText lowercases, strips punctuation, and collapses spaces.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// keywords extracts non-stopword tokens of length > 1 from s. CJK text
// has no token boundaries, so Han runs are additionally split into
// single runes.
func keywords(s string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if isLogographic(w) {
			for _, r := range w {
				out = append(out, string(r))
			}
			continue
		}
		if len(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

func keywordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range keywords(s) {
		set[w] = struct{}{}
	}
	return set
}

// overlapRatio returns |claim ∩ text| / |claim| over keyword sets.
func overlapRatio(claim, text string) float64 {
	claimKw := keywords(claim)
	if len(claimKw) == 0 {
		return 0
	}
	textSet := keywordSet(text)
	matches := 0
	for _, kw := range claimKw {
		if _, ok := textSet[kw]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(claimKw))
}

// isLogographic reports whether s contains any Han rune.
func isLogographic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// diceCoefficient measures string similarity over rune bigrams (0-1).
func diceCoefficient(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		if a == b && a != "" {
			return 1
		}
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[string(ra[i:i+2])]++
	}
	matches := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := string(rb[i : i+2])
		if bigrams[bg] > 0 {
			bigrams[bg]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(ra)-1+len(rb)-1)
}

// listSimilarity is Jaccard similarity over two string lists with
// partial credit for substring or near-duplicate pairs.
func listSimilarity(list1, list2 []string) float64 {
	if len(list1) == 0 || len(list2) == 0 {
		return 0
	}

	set1 := make(map[string]struct{}, len(list1))
	for _, s := range list1 {
		if n := normalizeText(s); n != "" {
			set1[n] = struct{}{}
		}
	}
	set2 := make(map[string]struct{}, len(list2))
	for _, s := range list2 {
		if n := normalizeText(s); n != "" {
			set2[n] = struct{}{}
		}
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	exact := 0
	union := len(set1)
	for s := range set2 {
		if _, ok := set1[s]; ok {
			exact++
		} else {
			union++
		}
	}

	fuzzy := 0.0
	for s1 := range set1 {
		if _, ok := set2[s1]; ok {
			continue
		}
		for s2 := range set2 {
			if _, ok := set1[s2]; ok {
				continue
			}
			if strings.Contains(s1, s2) || strings.Contains(s2, s1) || diceCoefficient(s1, s2) > 0.85 {
				fuzzy += 0.5
			}
		}
	}

	sim := (float64(exact) + fuzzy) / float64(union)
	if sim > 1 {
		sim = 1
	}
	return sim
}

// textMentionsAny reports whether any list entry appears verbatim
// (case-insensitive) in free text.
func textMentionsAny(list []string, text string) bool {
	lower := strings.ToLower(text)
	for _, s := range list {
		n := strings.ToLower(strings.TrimSpace(s))
		if n != "" && strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
