package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/alvmarrod/sitegraph/internal/fetch"
	"github.com/alvmarrod/sitegraph/internal/graph"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Termination reasons reported in Result
const (
	ReasonFrontierEmpty = "frontier_empty"
	ReasonPageBudget    = "page_budget"
)

// Options configures a Crawler. Nil collaborators fall back to the
// Colly fetcher, goquery extraction and the standard logger.
type Options struct {
	Rules Rules
	// Workers is the number of pages fetched concurrently. Graph updates
	// always happen in dequeue order, so output does not depend on it.
	Workers  int
	Fetcher  Fetcher
	Extract  ExtractFunc
	Resolve  ResolveFunc
	Recorder Recorder
	Logger   logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Rules.ResourceExtensions == nil {
		o.Rules.ResourceExtensions = DefaultResourceExtensions
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Fetcher == nil {
		o.Fetcher = fetch.NewFetcher(fetch.DefaultTimeout, "")
	}
	if o.Extract == nil {
		o.Extract = fetch.ExtractAnchors
	}
	if o.Resolve == nil {
		o.Resolve = fetch.ResolveURL
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Result is the outcome of a crawl run
type Result struct {
	Graph graph.Data
	// Visited is the number of pages fetched or attempted
	Visited int
	// Remaining is the number of URLs left in the frontier when the crawl stopped
	Remaining         int
	TerminationReason string
}

// Crawler drives a breadth-first crawl of a single site
type Crawler struct {
	opts Options
	log  logrus.FieldLogger
}

// NewCrawler creates a new crawler instance
func NewCrawler(opts Options) *Crawler {
	opts = opts.withDefaults()
	return &Crawler{
		opts: opts,
		log:  opts.Logger,
	}
}

// Run crawls the site at rootURL with the default collaborators and
// returns the resulting graph
func Run(rootURL string, pageBudget int) (graph.Data, error) {
	result, err := NewCrawler(Options{Rules: DefaultRules()}).Run(rootURL, pageBudget)
	if err != nil {
		return graph.Data{}, err
	}
	return result.Graph, nil
}

// Run crawls breadth-first from rootURL until the frontier is empty or
// pageBudget pages have been visited
func (c *Crawler) Run(rootURL string, pageBudget int) (*Result, error) {
	rootKey, rootDomain, err := parseRoot(rootURL)
	if err != nil {
		return nil, err
	}
	if pageBudget < 0 {
		return nil, fmt.Errorf("page budget must be >= 0, got %d", pageBudget)
	}

	state := NewState()
	pages := NewPageCrawler(rootKey, rootDomain, state, c.opts)
	frontier := NewFrontier()
	frontier.Push(rootKey)

	c.log.Infof("Starting crawl of %s (budget=%d, workers=%d)", rootKey, pageBudget, c.opts.Workers)

	for !frontier.IsEmpty() && len(state.Visited) < pageBudget {
		batch := c.nextBatch(frontier, state, pageBudget-len(state.Visited))
		if len(batch) == 0 {
			break
		}

		for _, pageURL := range batch {
			pages.Visit(pageURL)
		}

		results := c.fetchAll(pages, batch)

		for i, pageURL := range batch {
			for _, link := range pages.Process(pageURL, results[i]) {
				if state.Visited[link] || frontier.Contains(link) {
					continue
				}
				frontier.Push(link)
			}
		}

		c.log.Infof("Queue size: %d, Visited: %d URLs", frontier.Size(), len(state.Visited))
	}

	// The root keeps the "/" label even when its path has a last segment
	state.Graph.SetLabel(rootKey, graph.RootLabel)

	reason := ReasonFrontierEmpty
	if !frontier.IsEmpty() {
		reason = ReasonPageBudget
	}

	nodes, edges := state.Graph.GetStats()
	c.log.WithFields(logrus.Fields{
		"visited":   len(state.Visited),
		"remaining": frontier.Size(),
		"nodes":     nodes,
		"edges":     edges,
	}).Infof("Crawl finished: %s", reason)

	return &Result{
		Graph:             state.Graph.Snapshot(),
		Visited:           len(state.Visited),
		Remaining:         frontier.Size(),
		TerminationReason: reason,
	}, nil
}

// nextBatch pops up to min(workers, budget) keys that have not been visited yet
func (c *Crawler) nextBatch(frontier *Frontier, state *State, budget int) []string {
	size := c.opts.Workers
	if budget < size {
		size = budget
	}

	batch := make([]string, 0, size)
	for len(batch) < size {
		key, ok := frontier.Pop()
		if !ok {
			break
		}
		if state.Visited[key] {
			continue
		}
		batch = append(batch, key)
	}
	return batch
}

// fetchAll fetches a batch concurrently. Results are stored by index so
// that processing keeps the dequeue order.
func (c *Crawler) fetchAll(pages *PageCrawler, batch []string) []fetch.Result {
	results := make([]fetch.Result, len(batch))
	if len(batch) == 1 {
		results[0] = pages.Fetch(batch[0])
		return results
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, pageURL := range batch {
		i, pageURL := i, pageURL
		g.Go(func() error {
			results[i] = pages.Fetch(pageURL)
			return nil
		})
	}
	// Fetch never returns an error, failures live in the results
	_ = g.Wait()

	return results
}

// parseRoot validates the root URL and returns its key and host
func parseRoot(rootURL string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rootURL))
	if err != nil {
		return "", "", fmt.Errorf("invalid root URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid root URL %q: scheme must be http or https", rootURL)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid root URL %q: missing host", rootURL)
	}
	return Normalize(parsed.String()), parsed.Host, nil
}
