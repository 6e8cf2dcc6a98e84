package graph

import "encoding/json"

// Node represents a page or resource in the crawl graph
type Node struct {
	ID       string
	Label    string
	External bool
}

// Edge represents a directed link between two nodes
type Edge struct {
	From string
	To   string
}

// Data is the exported form of a graph
type Data struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type nodeJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type edgeJSON struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Arrows string `json:"arrows"`
}

// MarshalJSON encodes a node in the visualization format; only external nodes carry a color
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{ID: n.ID, Label: n.Label}
	if n.External {
		out.Color = ExternalColor
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a node, treating any color as the external marker
func (n *Node) UnmarshalJSON(b []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*n = Node{ID: in.ID, Label: in.Label, External: in.Color != ""}
	return nil
}

// MarshalJSON encodes an edge as a directed arrow
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(edgeJSON{From: e.From, To: e.To, Arrows: "to"})
}

// UnmarshalJSON decodes an edge, ignoring the arrows attribute
func (e *Edge) UnmarshalJSON(b []byte) error {
	var in edgeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*e = Edge{From: in.From, To: in.To}
	return nil
}
