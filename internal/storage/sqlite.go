package storage

import (
	"database/sql"
	"fmt"

	"github.com/alvmarrod/sitegraph/internal/graph"
	_ "github.com/mattn/go-sqlite3"
)

// Storage persists crawl graphs in SQLite
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		node_id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL,
		label TEXT NOT NULL,
		external INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		FOREIGN KEY (from_node_id) REFERENCES nodes(node_id),
		FOREIGN KEY (to_node_id) REFERENCES nodes(node_id),
		UNIQUE(from_node_id, to_node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_url ON nodes(url);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Export replaces the stored graph with data in a single transaction
func (s *Storage) Export(data graph.Data) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	ids := make(map[string]int64, len(data.Nodes))
	for _, node := range data.Nodes {
		id, err := upsertNode(tx, node)
		if err != nil {
			return err
		}
		ids[node.ID] = id
	}

	for _, edge := range data.Edges {
		fromID, fromExists := ids[edge.From]
		toID, toExists := ids[edge.To]
		if !fromExists || !toExists {
			return fmt.Errorf("edge %s -> %s references an unknown node", edge.From, edge.To)
		}
		if err := upsertEdge(tx, fromID, toID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	return nil
}

// upsertNode inserts a node or updates its display attributes if the URL exists.
// Returns the node_id of the inserted/existing node
func upsertNode(tx *sql.Tx, node graph.Node) (int64, error) {
	_, err := tx.Exec(`
		INSERT INTO nodes (url, label, external)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			label = excluded.label,
			external = excluded.external
	`, node.ID, node.Label, node.External)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}

	var nodeID int64
	if err := tx.QueryRow("SELECT node_id FROM nodes WHERE url = ?", node.ID).Scan(&nodeID); err != nil {
		return 0, fmt.Errorf("failed to retrieve node_id: %w", err)
	}
	return nodeID, nil
}

// upsertEdge inserts a directed edge; an existing (from, to) pair is left untouched
func upsertEdge(tx *sql.Tx, fromID, toID int64) error {
	_, err := tx.Exec(`
		INSERT INTO edges (from_node_id, to_node_id)
		VALUES (?, ?)
		ON CONFLICT(from_node_id, to_node_id) DO NOTHING
	`, fromID, toID)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// LoadGraph reads the stored graph back in insertion order
func (s *Storage) LoadGraph() (graph.Data, error) {
	data := graph.Data{
		Nodes: []graph.Node{},
		Edges: []graph.Edge{},
	}

	rows, err := s.db.Query("SELECT url, label, external FROM nodes ORDER BY node_id ASC")
	if err != nil {
		return graph.Data{}, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node graph.Node
		if err := rows.Scan(&node.ID, &node.Label, &node.External); err != nil {
			return graph.Data{}, fmt.Errorf("failed to scan node: %w", err)
		}
		data.Nodes = append(data.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return graph.Data{}, fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeRows, err := s.db.Query(`
		SELECT f.url, t.url
		FROM edges e
		JOIN nodes f ON f.node_id = e.from_node_id
		JOIN nodes t ON t.node_id = e.to_node_id
		ORDER BY e.edge_id ASC
	`)
	if err != nil {
		return graph.Data{}, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var edge graph.Edge
		if err := edgeRows.Scan(&edge.From, &edge.To); err != nil {
			return graph.Data{}, fmt.Errorf("failed to scan edge: %w", err)
		}
		data.Edges = append(data.Edges, edge)
	}
	if err := edgeRows.Err(); err != nil {
		return graph.Data{}, fmt.Errorf("error iterating edges: %w", err)
	}

	return data, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
