package crawler

import (
	"time"

	"github.com/alvmarrod/sitegraph/internal/fetch"
	"github.com/alvmarrod/sitegraph/internal/graph"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves a page. Implementations must enforce their own timeout
// and report failures through the result instead of panicking.
type Fetcher interface {
	Fetch(rawURL string) fetch.Result
}

// ExtractFunc parses an HTML body into raw href values in document order
type ExtractFunc func(body []byte) ([]string, error)

// ResolveFunc resolves an href against the URL of the page it was found on
type ResolveFunc func(base, href string) (string, error)

// Recorder receives crawl statistics. metrics.Tracker implements it.
type Recorder interface {
	IncrementNodesCrawled()
	IncrementNodesDiscovered()
	IncrementEdgesRecorded()
	IncrementPagesFetched()
	IncrementPagesFailed()
	RecordFetchTime(duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) IncrementNodesCrawled()        {}
func (nopRecorder) IncrementNodesDiscovered()     {}
func (nopRecorder) IncrementEdgesRecorded()       {}
func (nopRecorder) IncrementPagesFetched()        {}
func (nopRecorder) IncrementPagesFailed()         {}
func (nopRecorder) RecordFetchTime(time.Duration) {}

// State is the accumulator of a single crawl run
type State struct {
	Graph *graph.Graph
	// Visited holds keys whose page was fetched or attempted
	Visited map[string]bool
	// Seen holds keys already discovered as a link target on any page
	Seen map[string]bool
}

// NewState creates an empty crawl state
func NewState() *State {
	return &State{
		Graph:   graph.NewGraph(),
		Visited: make(map[string]bool),
		Seen:    make(map[string]bool),
	}
}

// PageCrawler processes one page at a time against a shared State
type PageCrawler struct {
	rootKey    string
	rootDomain string
	rules      Rules
	classifier *Classifier
	state      *State
	fetcher    Fetcher
	extract    ExtractFunc
	resolve    ResolveFunc
	recorder   Recorder
	log        logrus.FieldLogger
}

// NewPageCrawler creates a page crawler for the site rooted at rootKey.
// Collaborators left nil in opts fall back to the defaults.
func NewPageCrawler(rootKey, rootDomain string, state *State, opts Options) *PageCrawler {
	opts = opts.withDefaults()
	return &PageCrawler{
		rootKey:    rootKey,
		rootDomain: rootDomain,
		rules:      opts.Rules,
		classifier: NewClassifier(opts.Rules),
		state:      state,
		fetcher:    opts.Fetcher,
		extract:    opts.Extract,
		resolve:    opts.Resolve,
		recorder:   opts.Recorder,
		log:        opts.Logger,
	}
}

// Crawl visits, fetches and processes a single page, returning the
// internal links eligible for further crawling
func (p *PageCrawler) Crawl(pageURL string) []string {
	p.Visit(pageURL)
	return p.Process(pageURL, p.Fetch(pageURL))
}

// Visit marks the page visited and registers its node before any fetch,
// so a page that fails to load still appears as a dead end
func (p *PageCrawler) Visit(pageURL string) {
	p.state.Visited[pageURL] = true
	p.addNode(pageURL)
	p.recorder.IncrementNodesCrawled()
}

// Fetch retrieves the page and records its duration. Safe to call concurrently.
func (p *PageCrawler) Fetch(pageURL string) fetch.Result {
	start := time.Now()
	res := p.fetcher.Fetch(pageURL)
	p.recorder.RecordFetchTime(time.Since(start))
	return res
}

// Process applies the link policy to every anchor of a fetched page
func (p *PageCrawler) Process(pageURL string, res fetch.Result) []string {
	if !res.OK {
		p.log.WithFields(logrus.Fields{
			"url":    pageURL,
			"status": res.StatusCode,
		}).Warnf("Error crawling %s: %v", pageURL, res.Err)
		p.recorder.IncrementPagesFailed()
		return nil
	}
	p.recorder.IncrementPagesFetched()

	hrefs, err := p.extract(res.Body)
	if err != nil {
		p.log.WithField("url", pageURL).Warnf("Failed to parse %s: %v", pageURL, err)
		return nil
	}

	var found []string
	for _, href := range hrefs {
		if link, ok := p.handleLink(pageURL, href); ok {
			found = append(found, link)
		}
	}

	p.log.WithField("url", pageURL).Debugf("Found %d crawlable links on %s", len(found), pageURL)
	return found
}

// handleLink processes a single anchor. Returns the link key and true
// when the target should be crawled.
func (p *PageCrawler) handleLink(pageURL, href string) (string, bool) {
	abs, err := p.resolve(pageURL, href)
	if err != nil {
		p.log.WithField("url", pageURL).Debugf("Skipping unresolvable link %q: %v", href, err)
		return "", false
	}

	if p.rules.HTTPOnly && !isHTTP(abs) {
		return "", false
	}

	link := Normalize(abs)

	if link == pageURL {
		return "", false
	}

	if p.rules.SkipDirectParent && IsDirectParent(pageURL, link) {
		return "", false
	}

	if p.state.Seen[link] {
		return "", false
	}

	if folded := p.classifier.Fold(link); folded != link {
		if folded == pageURL {
			return "", false
		}
		link = folded
	}

	if link == p.rootKey {
		return "", false
	}

	p.addNode(link)
	if p.state.Graph.AddEdge(pageURL, link) {
		p.recorder.IncrementEdgesRecorded()
	}
	p.state.Seen[link] = true

	if p.classifier.IsResourceFile(link) {
		return "", false
	}

	return link, IsInternal(link, p.rootDomain)
}

func (p *PageCrawler) addNode(key string) {
	if p.state.Graph.AddNode(key, !IsInternal(key, p.rootDomain)) {
		p.recorder.IncrementNodesDiscovered()
	}
}
