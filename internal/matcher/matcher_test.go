package matcher

import (
	"strings"
	"testing"

	"vennqca/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "La organización apoya mercados campesinos y procesos de arte comunitario en la región. Parte del trabajo es formación."

func probe(t *testing.T, p *models.Proxy, content string) (Match, bool) {
	t.Helper()
	hit, ok, err := New().Probe(p, content)
	require.NoError(t, err)
	return hit, ok
}

func TestContainsMatch(t *testing.T) {
	p := &models.Proxy{ID: 1, Term: "Mercados Campesinos", MatchType: models.MatchContains}
	hit, ok := probe(t, p, sample)
	require.True(t, ok)
	assert.Equal(t, int64(1), hit.ProxyID)
	assert.Contains(t, hit.Fragment, "mercados campesinos")
}

func TestContainsCaseSensitive(t *testing.T) {
	p := &models.Proxy{Term: "Mercados", MatchType: models.MatchContains, CaseSensitive: true}
	_, ok := probe(t, p, sample)
	assert.False(t, ok)

	p.Term = "mercados"
	_, ok = probe(t, p, sample)
	assert.True(t, ok)
}

func TestExactRequiresWordBoundary(t *testing.T) {
	p := &models.Proxy{Term: "arte", MatchType: models.MatchExact}
	hit, ok := probe(t, p, sample)
	require.True(t, ok)
	assert.Contains(t, hit.Fragment, "arte comunitario")

	p.Term = "rcados"
	_, ok = probe(t, p, sample)
	assert.False(t, ok, "exact must not match inside a word")
}

func TestExactBoundaryWithAccentedNeighbors(t *testing.T) {
	p := &models.Proxy{Term: "organizaci", MatchType: models.MatchExact}
	_, ok := probe(t, p, sample)
	assert.False(t, ok, "ó after the hit is still part of the word")
}

func TestRegexMatch(t *testing.T) {
	p := &models.Proxy{Term: `mercados?\s+campesinos?`, MatchType: models.MatchRegex}
	_, ok := probe(t, p, sample)
	assert.True(t, ok)
}

func TestRegexInvalidPattern(t *testing.T) {
	p := &models.Proxy{Term: `mercados(`, MatchType: models.MatchRegex}
	_, _, err := New().Probe(p, sample)
	assert.Error(t, err)
}

func TestFuzzyToleratesReordering(t *testing.T) {
	p := &models.Proxy{Term: "campesinos mercados", MatchType: models.MatchFuzzy}
	_, ok := probe(t, p, sample)
	assert.True(t, ok)

	p.Term = "mercados urbanos"
	_, ok = probe(t, p, sample)
	assert.False(t, ok)
}

func TestFragmentEllipsis(t *testing.T) {
	p := &models.Proxy{Term: "procesos", MatchType: models.MatchContains}
	hit, ok := probe(t, p, sample)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(hit.Fragment, "..."))
	assert.True(t, strings.HasSuffix(hit.Fragment, "..."))
}

func TestProbeAllSkipsBrokenRegex(t *testing.T) {
	proxies := []*models.Proxy{
		{ID: 1, Term: "mercados", MatchType: models.MatchContains, Weight: 1},
		{ID: 2, Term: "broken(", MatchType: models.MatchRegex, Weight: 1},
		{ID: 3, Term: "ausente", MatchType: models.MatchContains, Weight: 1},
	}
	hits := New().ProbeAll(proxies, sample)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ProxyID)
}
