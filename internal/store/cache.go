package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO
)

// MaxListLimit is the largest page size list() will honor.
const MaxListLimit = 1000

// Cache is the durable key-value store of parsed nodes, indexed by id,
// source path, and tag. It is the single source of truth the Graph Index
// and Vector Index are kept in eventual agreement with.
type Cache struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// OpenCache opens (creating if necessary) the node cache database at path.
// An empty path opens a private in-memory database, used in tests.
func OpenCache(path string) (*Cache, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("cache: create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}

	// A single connection serializes writers; the WAL pragmas below still
	// let external readers (e.g. sqlite3 CLI) observe a consistent snapshot.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: pragma %q: %w", p, err)
		}
	}

	c := &Cache{db: db, path: path}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			content        TEXT NOT NULL DEFAULT '',
			is_ghost       INTEGER NOT NULL DEFAULT 0,
			outgoing_links TEXT NOT NULL DEFAULT '[]',
			properties     TEXT NOT NULL DEFAULT '{}',
			source_kind    TEXT,
			source_path    TEXT,
			source_mtime   INTEGER
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_source_path ON nodes(source_path) WHERE source_path IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS node_tags (
			node_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			tag     TEXT NOT NULL,
			PRIMARY KEY (node_id, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_tags_tag ON node_tags(tag COLLATE NOCASE)`,
		`CREATE TABLE IF NOT EXISTS centrality (
			id          TEXT PRIMARY KEY REFERENCES nodes(id) ON DELETE CASCADE,
			page_rank   REAL NOT NULL DEFAULT 0,
			in_degree   INTEGER NOT NULL DEFAULT 0,
			out_degree  INTEGER NOT NULL DEFAULT 0,
			computed_at INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("cache: migrate: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Upsert inserts or replaces a real node (idempotent).
func (c *Cache) Upsert(node Node) error {
	if node.IsGhost {
		return fmt.Errorf("cache: Upsert called with a ghost node %q, use UpsertGhost", node.ID)
	}
	return c.upsert(node)
}

// UpsertGhost inserts or replaces a ghost node. Ghosts carry no content and
// no source reference.
func (c *Cache) UpsertGhost(node Node) error {
	if node.Content != "" || !node.Source.IsZero() {
		return fmt.Errorf("cache: UpsertGhost requires absent content and source, got node %q", node.ID)
	}
	node.IsGhost = true
	return c.upsert(node)
}

func (c *Cache) upsert(node Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	links, err := json.Marshal(nonNilStrings(node.OutgoingLinks))
	if err != nil {
		return fmt.Errorf("cache: marshal outgoing_links: %w", err)
	}
	props := node.Properties
	if props == nil {
		props = map[string]any{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("cache: marshal properties: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sourceKind, sourcePath sql.NullString
	var sourceMtime sql.NullInt64
	if !node.Source.IsZero() {
		sourceKind = sql.NullString{String: node.Source.Kind, Valid: true}
		sourcePath = sql.NullString{String: node.Source.AbsolutePath, Valid: true}
		sourceMtime = sql.NullInt64{Int64: node.Source.ModTime.UnixNano(), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (id, title, content, is_ghost, outgoing_links, properties, source_kind, source_path, source_mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			is_ghost = excluded.is_ghost,
			outgoing_links = excluded.outgoing_links,
			properties = excluded.properties,
			source_kind = excluded.source_kind,
			source_path = excluded.source_path,
			source_mtime = excluded.source_mtime
	`, node.ID, node.Title, node.Content, boolToInt(node.IsGhost), string(links), string(propsJSON), sourceKind, sourcePath, sourceMtime)
	if err != nil {
		return fmt.Errorf("cache: upsert node: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM node_tags WHERE node_id = ?`, node.ID); err != nil {
		return fmt.Errorf("cache: clear tags: %w", err)
	}
	for _, tag := range node.Tags {
		if _, err := tx.Exec(`INSERT INTO node_tags (node_id, tag) VALUES (?, ?)`, node.ID, tag); err != nil {
			return fmt.Errorf("cache: insert tag: %w", err)
		}
	}

	return tx.Commit()
}

// Get returns the node with the given id.
func (c *Cache) Get(id string) (Node, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scanOne(`SELECT id, title, content, is_ghost, outgoing_links, properties, source_kind, source_path, source_mtime FROM nodes WHERE id = ?`, id)
}

// GetByPath returns the node tracked for the given absolute source path.
func (c *Cache) GetByPath(path string) (Node, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scanOne(`SELECT id, title, content, is_ghost, outgoing_links, properties, source_kind, source_path, source_mtime FROM nodes WHERE source_path = ?`, path)
}

func (c *Cache) scanOne(query string, arg any) (Node, bool, error) {
	row := c.db.QueryRow(query, arg)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return Node{}, false, nil
	}
	if err != nil {
		return Node{}, false, err
	}
	tags, err := c.tagsFor(node.ID)
	if err != nil {
		return Node{}, false, err
	}
	node.Tags = tags
	return node, true, nil
}

// GetMany returns the nodes for ids, in input order, skipping misses.
func (c *Cache) GetMany(ids []string) ([]Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		node, ok, err := c.scanOne(`SELECT id, title, content, is_ghost, outgoing_links, properties, source_kind, source_path, source_mtime FROM nodes WHERE id = ?`, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, node)
		}
	}
	return out, nil
}

// Delete removes a node and (via foreign-key cascade) its tags and
// centrality record.
func (c *Cache) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// ListAllTrackedPaths returns the source path of every real (non-ghost) node.
func (c *Cache) ListAllTrackedPaths() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(`SELECT source_path FROM nodes WHERE source_path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("cache: list tracked paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListAll returns every node in the cache, ghosts included.
func (c *Cache) ListAll() ([]Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(`SELECT id, title, content, is_ghost, outgoing_links, properties, source_kind, source_path, source_mtime FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("cache: list all: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range nodes {
		tags, err := c.tagsFor(nodes[i].ID)
		if err != nil {
			return nil, err
		}
		nodes[i].Tags = tags
	}
	return nodes, nil
}

// SearchByTags returns nodes matching tags under the given mode, up to limit.
func (c *Cache) SearchByTags(tags []string, mode TagMode, limit int) ([]Node, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	placeholders := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, t := range tags {
		placeholders[i] = "?"
		args[i] = t
	}

	var query string
	switch mode {
	case TagModeAll:
		query = fmt.Sprintf(`
			SELECT n.id, n.title, n.content, n.is_ghost, n.outgoing_links, n.properties, n.source_kind, n.source_path, n.source_mtime
			FROM nodes n
			WHERE n.id IN (
				SELECT node_id FROM node_tags WHERE tag COLLATE NOCASE IN (%s)
				GROUP BY node_id HAVING COUNT(DISTINCT tag COLLATE NOCASE) = ?
			)
			LIMIT ?`, strings.Join(placeholders, ","))
		args = append(args, len(tags), limit)
	default: // TagModeAny
		query = fmt.Sprintf(`
			SELECT DISTINCT n.id, n.title, n.content, n.is_ghost, n.outgoing_links, n.properties, n.source_kind, n.source_path, n.source_mtime
			FROM nodes n
			JOIN node_tags t ON t.node_id = n.id
			WHERE t.tag COLLATE NOCASE IN (%s)
			LIMIT ?`, strings.Join(placeholders, ","))
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("cache: search by tags: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range nodes {
		t, err := c.tagsFor(nodes[i].ID)
		if err != nil {
			return nil, err
		}
		nodes[i].Tags = t
	}
	return nodes, nil
}

// List returns a filtered, paged slice of node summaries plus the total
// number of nodes matching the filter (ignoring paging).
func (c *Cache) List(filter ListFilter, paging Paging) ([]Summary, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	limit := paging.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var where []string
	var args []any

	switch filter.Ghosts {
	case GhostFilterExclude:
		where = append(where, "n.is_ghost = 0")
	case GhostFilterOnly:
		where = append(where, "n.is_ghost = 1")
	}

	if filter.PathPrefix != "" {
		where = append(where, "n.source_path LIKE ? ESCAPE '\\' COLLATE NOCASE")
		args = append(args, escapeLike(filter.PathPrefix)+"%")
	}

	if filter.Tag != "" {
		where = append(where, "n.id IN (SELECT node_id FROM node_tags WHERE tag = ? COLLATE NOCASE)")
		args = append(args, filter.Tag)
	}

	switch filter.Orphans {
	case OrphanFilterExclude:
		where = append(where, "n.id IN (SELECT id FROM centrality WHERE in_degree > 0)")
	case OrphanFilterOnly:
		where = append(where, "n.id NOT IN (SELECT id FROM centrality WHERE in_degree > 0)")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM nodes n %s`, whereClause)
	if err := c.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("cache: count: %w", err)
	}

	pageArgs := append(append([]any{}, args...), limit, paging.Offset)
	query := fmt.Sprintf(`
		SELECT n.id, n.title, n.is_ghost
		FROM nodes n
		%s
		ORDER BY n.id
		LIMIT ? OFFSET ?`, whereClause)

	rows, err := c.db.Query(query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		var isGhost int
		if err := rows.Scan(&s.ID, &s.Title, &isGhost); err != nil {
			return nil, 0, err
		}
		s.IsGhost = isGhost != 0
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range summaries {
		tags, err := c.tagsFor(summaries[i].ID)
		if err != nil {
			return nil, 0, err
		}
		summaries[i].Tags = tags
	}

	return summaries, total, nil
}

// UpdateOutgoingLinks bulk-rewrites a node's resolved link targets.
func (c *Cache) UpdateOutgoingLinks(id string, links []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(nonNilStrings(links))
	if err != nil {
		return fmt.Errorf("cache: marshal outgoing_links: %w", err)
	}
	_, err = c.db.Exec(`UPDATE nodes SET outgoing_links = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("cache: update outgoing_links: %w", err)
	}
	return nil
}

// StoreCentrality overwrites a node's centrality record.
func (c *Cache) StoreCentrality(id string, pageRank float64, inDegree, outDegree int, computedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO centrality (id, page_rank, in_degree, out_degree, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page_rank = excluded.page_rank,
			in_degree = excluded.in_degree,
			out_degree = excluded.out_degree,
			computed_at = excluded.computed_at
	`, id, pageRank, inDegree, outDegree, computedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("cache: store centrality: %w", err)
	}
	return nil
}

// GetCentrality returns a node's centrality record.
func (c *Cache) GetCentrality(id string) (CentralityRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var rec CentralityRecord
	var computedAt int64
	err := c.db.QueryRow(`SELECT id, page_rank, in_degree, out_degree, computed_at FROM centrality WHERE id = ?`, id).
		Scan(&rec.ID, &rec.PageRank, &rec.InDegree, &rec.OutDegree, &computedAt)
	if err == sql.ErrNoRows {
		return CentralityRecord{}, false, nil
	}
	if err != nil {
		return CentralityRecord{}, false, fmt.Errorf("cache: get centrality: %w", err)
	}
	rec.ComputedAt = time.Unix(0, computedAt)
	return rec, true, nil
}

// ResolveTitles returns an id -> title mapping for the given ids.
func (c *Cache) ResolveTitles(ids []string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		var title string
		err := c.db.QueryRow(`SELECT title FROM nodes WHERE id = ?`, id).Scan(&title)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cache: resolve titles: %w", err)
		}
		out[id] = title
	}
	return out, nil
}

// NodesExist returns an id -> bool mapping for the given ids.
func (c *Cache) NodesExist(ids []string) (map[string]bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		var exists int
		err := c.db.QueryRow(`SELECT 1 FROM nodes WHERE id = ?`, id).Scan(&exists)
		out[id] = err == nil
	}
	return out, nil
}

func (c *Cache) tagsFor(id string) ([]string, error) {
	rows, err := c.db.Query(`SELECT tag FROM node_tags WHERE node_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("cache: tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (Node, error) {
	var n Node
	var isGhost int
	var links, props string
	var sourceKind, sourcePath sql.NullString
	var sourceMtime sql.NullInt64

	if err := row.Scan(&n.ID, &n.Title, &n.Content, &isGhost, &links, &props, &sourceKind, &sourcePath, &sourceMtime); err != nil {
		return Node{}, err
	}
	n.IsGhost = isGhost != 0

	var linkSlice []string
	if err := json.Unmarshal([]byte(links), &linkSlice); err != nil {
		return Node{}, fmt.Errorf("cache: unmarshal outgoing_links: %w", err)
	}
	n.OutgoingLinks = linkSlice

	var propsMap map[string]any
	if err := json.Unmarshal([]byte(props), &propsMap); err != nil {
		return Node{}, fmt.Errorf("cache: unmarshal properties: %w", err)
	}
	n.Properties = propsMap

	if sourcePath.Valid {
		n.Source = SourceRef{
			Kind:         sourceKind.String,
			AbsolutePath: sourcePath.String,
			ModTime:      time.Unix(0, sourceMtime.Int64),
		}
	}
	return n, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
