// Package citations builds and applies the article allow-list that keeps
// every legal citation in an engine output traceable to retrieved legal
// text. An article may only be cited if its identifier was physically
// present in the legal context supplied for the evaluation session; the
// guarantee is symmetric for a rule's static references and for free-form
// downstream output.
package citations

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// articlePattern matches the citation surface forms found in consolidated
// legal text after accent folding: "Art. 165", "Articulo 165", "ART 165",
// "arts. 5", including dotted sub-article numbering ("165.2").
var articlePattern = regexp.MustCompile(`(?i)\bart(?:iculos?|s)?\.?\s*(?:n[ºo°]?\.?\s*)?(\d+(?:\.\d+)*)`)

// conjunctionPattern continues an enumeration after a matched article:
// "arts. 5, 6 y 7" cites three articles, not one. It only applies after a
// plural head (arts., artículos): a singular citation followed by "y" plus
// a number is ordinary prose ("Art. 5 y 3 meses después"), not a citation,
// and admitting it would widen the allow-list beyond the retrieved text.
var conjunctionPattern = regexp.MustCompile(`^\s*(?:,|y|e|o)\s+(\d+(?:\.\d+)*)`)

// bareNumberPattern accepts an already-normalized identifier.
var bareNumberPattern = regexp.MustCompile(`^\d+(?:\.\d+)*$`)

// ExtractAllowedArticles scans retrieved legal text and returns the set of
// normalized article identifiers it actually contains.
func ExtractAllowedArticles(legalContext string) map[string]struct{} {
	allowed := make(map[string]struct{})
	folded := foldAccents(legalContext)

	matches := articlePattern.FindAllStringSubmatchIndex(folded, -1)
	for _, m := range matches {
		allowed[folded[m[2]:m[3]]] = struct{}{}
		if !pluralHead(folded[m[0]:m[2]]) {
			continue
		}

		// Walk any trailing enumeration from the end of this match.
		rest := folded[m[1]:]
		for {
			cm := conjunctionPattern.FindStringSubmatchIndex(rest)
			if cm == nil {
				break
			}
			allowed[rest[cm[2]:cm[3]]] = struct{}{}
			rest = rest[cm[1]:]
		}
	}
	return allowed
}

// NormalizeArticleReference maps any citation string onto the normalized
// identifier space used by the allow-list. The second return is false when
// no article number can be extracted.
func NormalizeArticleReference(text string) (string, bool) {
	folded := strings.TrimSpace(foldAccents(text))
	if folded == "" {
		return "", false
	}
	if bareNumberPattern.MatchString(folded) {
		return folded, true
	}
	m := articlePattern.FindStringSubmatch(folded)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FilterLegalArticles partitions candidate citations into those verifiable
// against the allow-list and those that are not. Discarded citations are
// logged at warning level so the violation stays visible to the caller;
// they are never silently dropped.
func FilterLegalArticles(candidates []string, allowed map[string]struct{}, logger *slog.Logger) (valid, discarded []string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, citation := range candidates {
		id, ok := NormalizeArticleReference(citation)
		if !ok {
			discarded = append(discarded, citation)
			logger.Warn("citation has no extractable article number", "citation", citation)
			continue
		}
		if _, present := allowed[id]; !present {
			discarded = append(discarded, citation)
			logger.Warn("citation not present in retrieved legal context", "citation", citation, "article", id)
			continue
		}
		valid = append(valid, citation)
	}
	return valid, discarded
}

// pluralHead reports whether a matched citation head is one of the plural
// surface forms that introduce an enumeration.
func pluralHead(head string) bool {
	h := strings.ToLower(strings.TrimSpace(head))
	return strings.HasPrefix(h, "arts") || strings.HasPrefix(h, "articulos")
}

// foldAccents strips combining marks so "Artículo" and "ARTÍCULO" match the
// same pattern as their unaccented forms.
func foldAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
