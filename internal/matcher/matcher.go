// Package matcher probes free text for proxy terms. It backs the search
// endpoints and lets match facts be produced from already-fetched content
// without going back to the scraper.
package matcher

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"vennqca/models"
)

// Match is one positive probe outcome with the surrounding text fragment.
type Match struct {
	ProxyID  int64   `json:"proxy_id"`
	Term     string  `json:"term"`
	Fragment string  `json:"fragment"`
	Score    float64 `json:"score"`
}

// fragmentContext is how many characters of surrounding text a fragment keeps
// on each side of the hit.
const fragmentContext = 60

// Matcher probes text against proxy term definitions. Compiled regex terms
// are cached; a Matcher is safe for concurrent use.
type Matcher struct {
	mu      sync.Mutex
	regexes map[string]*regexp.Regexp
}

func New() *Matcher {
	return &Matcher{regexes: make(map[string]*regexp.Regexp)}
}

// Probe reports whether the proxy's term occurs in content, with the first
// matching fragment when it does.
func (m *Matcher) Probe(p *models.Proxy, content string) (Match, bool, error) {
	haystack := content
	needle := p.Term
	if !p.CaseSensitive {
		haystack = strings.ToLower(content)
		needle = strings.ToLower(p.Term)
	}

	var idx, length int
	var found bool
	var err error
	switch p.MatchType {
	case models.MatchExact:
		idx, length, found = wordMatch(haystack, needle)
	case models.MatchRegex:
		idx, length, found, err = m.regexMatch(needle, haystack, p.CaseSensitive)
		if err != nil {
			return Match{}, false, err
		}
	case models.MatchFuzzy:
		idx, length, found = fuzzyMatch(haystack, needle)
	default:
		idx = strings.Index(haystack, needle)
		length = len(needle)
		found = idx >= 0
	}
	if !found {
		return Match{}, false, nil
	}

	return Match{
		ProxyID:  p.ID,
		Term:     p.Term,
		Fragment: fragment(content, idx, length),
		Score:    p.Weight,
	}, true, nil
}

// ProbeAll runs every proxy against the content and collects the hits.
// Regex compilation errors on a single proxy skip that proxy rather than
// failing the whole probe.
func (m *Matcher) ProbeAll(proxies []*models.Proxy, content string) []Match {
	var out []Match
	for _, p := range proxies {
		hit, ok, err := m.Probe(p, content)
		if err != nil || !ok {
			continue
		}
		out = append(out, hit)
	}
	return out
}

func (m *Matcher) regexMatch(pattern, content string, caseSensitive bool) (int, int, bool, error) {
	key := pattern
	if !caseSensitive {
		key = "(?i)" + pattern
	}
	m.mu.Lock()
	re, ok := m.regexes[key]
	m.mu.Unlock()
	if !ok {
		var err error
		re, err = regexp.Compile(key)
		if err != nil {
			return 0, 0, false, err
		}
		m.mu.Lock()
		m.regexes[key] = re
		m.mu.Unlock()
	}
	loc := re.FindStringIndex(content)
	if loc == nil {
		return 0, 0, false, nil
	}
	return loc[0], loc[1] - loc[0], true, nil
}

// wordMatch finds needle as a whole word, so "arte" does not hit "parte".
func wordMatch(haystack, needle string) (int, int, bool) {
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return 0, 0, false
		}
		idx += from
		end := idx + len(needle)
		if boundaryBefore(haystack, idx) && boundaryAfter(haystack, end) {
			return idx, len(needle), true
		}
		from = idx + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// fuzzyMatch succeeds when every word of the term occurs somewhere in the
// content, tolerating reordering and intervening text. The fragment anchors
// on the first word.
func fuzzyMatch(haystack, needle string) (int, int, bool) {
	words := strings.Fields(needle)
	if len(words) == 0 {
		return 0, 0, false
	}
	first := -1
	firstLen := 0
	for i, w := range words {
		idx := strings.Index(haystack, w)
		if idx < 0 {
			return 0, 0, false
		}
		if i == 0 {
			first = idx
			firstLen = len(w)
		}
	}
	return first, firstLen, true
}

func fragment(content string, idx, length int) string {
	start := idx - fragmentContext
	if start < 0 {
		start = 0
	}
	end := idx + length + fragmentContext
	if end > len(content) {
		end = len(content)
	}
	frag := strings.TrimSpace(content[start:end])
	if start > 0 {
		frag = "..." + frag
	}
	if end < len(content) {
		frag = frag + "..."
	}
	return frag
}
