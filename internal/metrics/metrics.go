package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	RootURL           string    `json:"root_url"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	NodesDiscovered   int       `json:"nodes_discovered"`
	NodesCrawled      int       `json:"nodes_crawled"`
	EdgesRecorded     int       `json:"edges_recorded"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker for a crawl of rootURL
func NewTracker(rootURL string) *Tracker {
	return &Tracker{
		data: Metrics{
			RootURL:   rootURL,
			StartTime: time.Now(),
		},
	}
}

// IncrementNodesDiscovered increments the discovered nodes counter
func (t *Tracker) IncrementNodesDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesDiscovered++
}

// IncrementNodesCrawled increments the visited pages counter
func (t *Tracker) IncrementNodesCrawled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.NodesCrawled++
}

// IncrementEdgesRecorded increments the edges counter
func (t *Tracker) IncrementEdgesRecorded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EdgesRecorded++
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// Finish stamps the end time and termination reason
func (t *Tracker) Finish(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() Metrics {
	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path string) error {
	t.mu.Lock()
	snapshot := t.snapshot()
	t.mu.Unlock()

	if snapshot.EndTime.IsZero() {
		snapshot.EndTime = time.Now()
	}

	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats the current counters for a progress log line
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Nodes: %d discovered, %d crawled | Edges: %d | Pages: %d fetched, %d failed",
		t.data.NodesDiscovered,
		t.data.NodesCrawled,
		t.data.EdgesRecorded,
		t.data.PagesFetched,
		t.data.PagesFailed,
	)
}
