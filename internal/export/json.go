package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alvmarrod/sitegraph/internal/graph"
)

// Exporter persists the final contents of a crawl graph
type Exporter interface {
	Export(data graph.Data) error
}

// JSONFile writes a graph as indented JSON for the visualization frontend
type JSONFile struct {
	Path string
}

// NewJSONFile returns an exporter writing to name, appending ".json" when missing
func NewJSONFile(name string) *JSONFile {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return &JSONFile{Path: name}
}

// Export writes the graph to the configured path
func (j *JSONFile) Export(data graph.Data) error {
	if data.Nodes == nil {
		data.Nodes = []graph.Node{}
	}
	if data.Edges == nil {
		data.Edges = []graph.Edge{}
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	if err := os.WriteFile(j.Path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return nil
}

// ReadJSONFile loads a graph previously written by JSONFile
func ReadJSONFile(path string) (graph.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return graph.Data{}, fmt.Errorf("failed to read graph file: %w", err)
	}

	var data graph.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return graph.Data{}, fmt.Errorf("failed to parse graph JSON: %w", err)
	}
	return data, nil
}
