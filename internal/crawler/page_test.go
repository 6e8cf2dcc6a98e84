package crawler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/sitegraph/internal/fetch"
	"github.com/alvmarrod/sitegraph/internal/graph"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite serves canned HTML bodies by URL key; unknown URLs fail with 404
type fakeSite struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func newFakeSite(pages map[string]string) *fakeSite {
	return &fakeSite{pages: pages}
}

func (s *fakeSite) Fetch(rawURL string) fetch.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetched = append(s.fetched, rawURL)
	body, ok := s.pages[rawURL]
	if !ok {
		return fetch.Result{StatusCode: 404, Err: errors.New("Not Found")}
	}
	return fetch.Result{OK: true, StatusCode: 200, Body: []byte(body)}
}

func (s *fakeSite) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

// links renders an HTML page containing one anchor per href
func links(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, href)
	}
	b.WriteString("</body></html>")
	return b.String()
}

type countingRecorder struct {
	crawled, discovered, edges, fetched, failed int
}

func (r *countingRecorder) IncrementNodesCrawled()        { r.crawled++ }
func (r *countingRecorder) IncrementNodesDiscovered()     { r.discovered++ }
func (r *countingRecorder) IncrementEdgesRecorded()       { r.edges++ }
func (r *countingRecorder) IncrementPagesFetched()        { r.fetched++ }
func (r *countingRecorder) IncrementPagesFailed()         { r.failed++ }
func (r *countingRecorder) RecordFetchTime(time.Duration) {}

const root = "http://example.com"

func newTestPageCrawler(site *fakeSite, state *State, rules Rules) (*PageCrawler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	pc := NewPageCrawler(root, "example.com", state, Options{
		Rules:   rules,
		Fetcher: site,
		Logger:  logger,
	})
	return pc, hook
}

func edgesFrom(data graph.Data, from string) []string {
	var to []string
	for _, e := range data.Edges {
		if e.From == from {
			to = append(to, e.To)
		}
	}
	return to
}

func findNode(g *graph.Graph, id string) *graph.Node {
	for _, n := range g.Snapshot().Nodes {
		if n.ID == id {
			return &n
		}
	}
	return nil
}

func nodeIDs(data graph.Data) []string {
	ids := make([]string, 0, len(data.Nodes))
	for _, n := range data.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestPageCrawlerAppliesLinkPolicy(t *testing.T) {
	site := newFakeSite(map[string]string{
		root: links(
			"/a",
			"/b/",
			"http://other.org/x",
			"/files/report.pdf",
			"mailto:someone@example.com",
			"/a#again",
			"/",
			"?q=1",
			"",
		),
	})
	state := NewState()
	pc, _ := newTestPageCrawler(site, state, DefaultRules())

	found := pc.Crawl(root)

	assert.Equal(t, []string{root + "/a", root + "/b", "mailto:someone@example.com"}, found)
	assert.True(t, state.Visited[root])

	data := state.Graph.Snapshot()
	assert.Equal(t, []string{
		root,
		root + "/a",
		root + "/b",
		"http://other.org/x",
		root + "/files/report.pdf",
		"mailto:someone@example.com",
	}, nodeIDs(data))
	assert.Equal(t, []string{
		root + "/a",
		root + "/b",
		"http://other.org/x",
		root + "/files/report.pdf",
		"mailto:someone@example.com",
	}, edgesFrom(data, root))

	external := findNode(state.Graph, "http://other.org/x")
	require.NotNil(t, external)
	assert.True(t, external.External)
	assert.Equal(t, "http://other.org/x", external.Label)

	mail := findNode(state.Graph, "mailto:someone@example.com")
	require.NotNil(t, mail)
	assert.False(t, mail.External, "an empty host is internal")

	for _, key := range []string{root + "/a", root + "/b", "http://other.org/x", root + "/files/report.pdf"} {
		assert.True(t, state.Seen[key], key)
	}
}

func TestPageCrawlerSkipsDirectParent(t *testing.T) {
	page := root + "/docs/guide"
	site := newFakeSite(map[string]string{
		page: links("/docs", "/docs/", "/docs/other"),
	})

	state := NewState()
	pc, _ := newTestPageCrawler(site, state, DefaultRules())
	found := pc.Crawl(page)

	assert.Equal(t, []string{root + "/docs/other"}, found)
	assert.Nil(t, findNode(state.Graph, root+"/docs"))

	rules := DefaultRules()
	rules.SkipDirectParent = false
	state = NewState()
	pc, _ = newTestPageCrawler(site, state, rules)
	found = pc.Crawl(page)

	assert.Equal(t, []string{root + "/docs", root + "/docs/other"}, found)
	assert.NotNil(t, findNode(state.Graph, root+"/docs"))
}

func TestPageCrawlerSkipsSeenLinks(t *testing.T) {
	page := root + "/b"
	site := newFakeSite(map[string]string{
		page: links("/a", "/c"),
	})

	state := NewState()
	state.Seen[root+"/a"] = true
	pc, _ := newTestPageCrawler(site, state, DefaultRules())

	found := pc.Crawl(page)

	assert.Equal(t, []string{root + "/c"}, found)
	assert.Equal(t, []string{root + "/c"}, edgesFrom(state.Graph.Snapshot(), page))
}

func TestPageCrawlerNeverTargetsRoot(t *testing.T) {
	page := root + "/docs/guide"
	site := newFakeSite(map[string]string{
		page: links("/", "http://example.com/#home", "/docs/next"),
	})

	state := NewState()
	pc, _ := newTestPageCrawler(site, state, DefaultRules())
	found := pc.Crawl(page)

	assert.Equal(t, []string{root + "/docs/next"}, found)
	assert.Equal(t, []string{root + "/docs/next"}, edgesFrom(state.Graph.Snapshot(), page))
	assert.False(t, state.Seen[root])
}

func TestPageCrawlerFoldsSegments(t *testing.T) {
	rules := DefaultRules()
	rules.FoldSegments = []string{"main"}

	site := newFakeSite(map[string]string{
		root:                links("/project/main", "/main"),
		root + "/project":   links("/project/main", "/project/sub/main"),
		root + "/unrelated": links(),
	})

	state := NewState()
	pc, _ := newTestPageCrawler(site, state, rules)

	found := pc.Crawl(root)
	assert.Equal(t, []string{root + "/project"}, found, "/main folds into the root and is dropped")

	found = pc.Crawl(root + "/project")
	assert.Equal(t, []string{root + "/project/sub"}, found, "a link folding onto the page itself is dropped")

	data := state.Graph.Snapshot()
	assert.Equal(t, []string{root + "/project/sub"}, edgesFrom(data, root+"/project"))
	assert.Nil(t, findNode(state.Graph, root+"/project/main"))
}

func TestPageCrawlerFetchFailure(t *testing.T) {
	site := newFakeSite(map[string]string{})
	state := NewState()
	pc, hook := newTestPageCrawler(site, state, DefaultRules())
	rec := &countingRecorder{}
	pc.recorder = rec

	found := pc.Crawl(root + "/broken")

	assert.Empty(t, found)
	assert.NotNil(t, findNode(state.Graph, root+"/broken"), "failed page stays in the graph")
	assert.True(t, state.Visited[root+"/broken"])
	assert.Equal(t, 1, rec.failed)
	assert.Equal(t, 0, rec.fetched)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, root+"/broken", entry.Data["url"])
	assert.Equal(t, 404, entry.Data["status"])
}

func TestPageCrawlerParseFailure(t *testing.T) {
	site := newFakeSite(map[string]string{root: links("/a")})
	logger, hook := test.NewNullLogger()
	state := NewState()
	pc := NewPageCrawler(root, "example.com", state, Options{
		Rules:   DefaultRules(),
		Fetcher: site,
		Extract: func([]byte) ([]string, error) { return nil, errors.New("broken markup") },
		Logger:  logger,
	})

	assert.Empty(t, pc.Crawl(root))
	_, edges := state.Graph.GetStats()
	assert.Zero(t, edges)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestPageCrawlerRecordsMetrics(t *testing.T) {
	site := newFakeSite(map[string]string{
		root: links("/a", "/b", "/a"),
	})
	state := NewState()
	pc, _ := newTestPageCrawler(site, state, DefaultRules())
	rec := &countingRecorder{}
	pc.recorder = rec

	pc.Crawl(root)

	assert.Equal(t, 1, rec.crawled)
	assert.Equal(t, 3, rec.discovered)
	assert.Equal(t, 2, rec.edges)
	assert.Equal(t, 1, rec.fetched)
	assert.Equal(t, 0, rec.failed)
}

func TestPageCrawlerNonHTTPLinks(t *testing.T) {
	site := newFakeSite(map[string]string{
		root: links("mailto:someone@example.com", "javascript:void(0)", "tel:+123"),
	})

	rules := DefaultRules()
	state := NewState()
	pc, _ := newTestPageCrawler(site, state, rules)
	found := pc.Crawl(root)
	assert.Len(t, found, 3, "links without a host count as internal")
	nodes, edges := state.Graph.GetStats()
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 3, edges)

	rules.HTTPOnly = true
	state = NewState()
	pc, _ = newTestPageCrawler(site, state, rules)
	assert.Empty(t, pc.Crawl(root))
	nodes, _ = state.Graph.GetStats()
	assert.Equal(t, 1, nodes)
}

func TestPageCrawlerKeepsMailtoOnNestedPage(t *testing.T) {
	page := root + "/a"
	site := newFakeSite(map[string]string{
		page: links("mailto:someone@example.com"),
	})

	state := NewState()
	pc, _ := newTestPageCrawler(site, state, DefaultRules())
	pc.Crawl(page)

	assert.Equal(t, []string{"mailto:someone@example.com"}, edgesFrom(state.Graph.Snapshot(), page))
}
