package store

import (
	"database/sql"
	"sort"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	berrors "github.com/standardbeagle/phpbundle/internal/errors"
)

// ContentHash returns the content-identity digest used for File.content_hash
// and for the re-analysis skip check in 4.D step 1. xxhash is the same
// fast, well-distributed hash the indexing layer this store is descended
// from uses for content identity; it is not a cryptographic digest, which
// this store does not need since content_hash only gates re-analysis, never
// anything security sensitive (see DESIGN.md).
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// querier is satisfied by both *sql.DB and *sql.Tx so every read/write
// helper below works identically inside or outside an explicit transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is the single source of truth described in §4.B: one store per
// invocation, opened at pipeline start and closed at the end; all mutation
// is transactional.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite-backed store at path. Pass
// ":memory:" for an ephemeral in-process store, used heavily in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, berrors.NewStoreError("open", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, berrors.NewStoreError("configure", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, berrors.NewStoreError("migrate", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is a running transaction, the serialization point for concurrent
// writers described in §5: one writer at a time, readers may proceed
// concurrently against committed state.
type Tx struct {
	tx *sql.Tx
}

// Transaction runs fn within a transaction, rolling back on error or panic
// and committing otherwise. A panic inside fn propagates after rollback.
func (s *Store) Transaction(fn func(*Tx) error) (err error) {
	sqlTx, err := s.db.Begin()
	if err != nil {
		return berrors.NewStoreError("begin", err)
	}
	tx := &Tx{tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return berrors.NewStoreError("commit", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertFile inserts f or replaces the content of an existing row sharing
// f.Path, preserving is_entry when the existing row had it set (§3
// invariant). Returns the row with its durable ID populated.
func (s *Store) UpsertFile(f File) (File, error) {
	var result File
	err := s.Transaction(func(tx *Tx) error {
		r, err := tx.UpsertFile(f)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func (tx *Tx) UpsertFile(f File) (File, error) {
	existing, found, err := tx.GetFileByPath(f.Path)
	if err != nil {
		return File{}, err
	}

	isEntry := f.IsEntry
	if found && existing.IsEntry {
		isEntry = true // is_entry must be preserved once true
	}

	var astRoot any
	if f.ASTRoot != nil {
		astRoot = *f.ASTRoot
	}

	if found {
		_, err := tx.tx.Exec(`
			UPDATE files SET absolute_path=?, content_hash=?, raw_content=?, class_kind=?, skip_ast=?, ast_root=?, is_entry=?
			WHERE id=?`,
			f.AbsolutePath, f.ContentHash, f.RawContent, string(f.ClassKind), boolToInt(f.SkipAST), astRoot, boolToInt(isEntry), existing.ID)
		if err != nil {
			return File{}, berrors.NewStoreError("upsert_file", err)
		}
		f.ID = existing.ID
		f.IsEntry = isEntry
		return f, nil
	}

	res, err := tx.tx.Exec(`
		INSERT INTO files (path, absolute_path, content_hash, raw_content, class_kind, skip_ast, ast_root, is_entry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.AbsolutePath, f.ContentHash, f.RawContent, string(f.ClassKind), boolToInt(f.SkipAST), astRoot, boolToInt(isEntry))
	if err != nil {
		return File{}, berrors.NewStoreError("upsert_file", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return File{}, berrors.NewStoreError("upsert_file", err)
	}
	f.ID = id
	f.IsEntry = isEntry
	return f, nil
}

func scanFile(row *sql.Row) (File, bool, error) {
	var f File
	var rawContent []byte
	var classKind string
	var skipAST, isEntry int
	var astRoot sql.NullInt64

	err := row.Scan(&f.ID, &f.Path, &f.AbsolutePath, &f.ContentHash, &rawContent, &classKind, &skipAST, &astRoot, &isEntry)
	if err == sql.ErrNoRows {
		return File{}, false, nil
	}
	if err != nil {
		return File{}, false, berrors.NewStoreError("scan_file", err)
	}
	f.RawContent = rawContent
	f.ClassKind = ClassKind(classKind)
	f.SkipAST = skipAST != 0
	f.IsEntry = isEntry != 0
	if astRoot.Valid {
		v := astRoot.Int64
		f.ASTRoot = &v
	}
	return f, true, nil
}

const selectFileColumns = `id, path, absolute_path, content_hash, raw_content, class_kind, skip_ast, ast_root, is_entry`

// GetFileByPath looks up a file by its canonical path.
func (s *Store) GetFileByPath(path string) (File, bool, error) {
	return scanFile(s.db.QueryRow(`SELECT `+selectFileColumns+` FROM files WHERE path=?`, path))
}

func (tx *Tx) GetFileByPath(path string) (File, bool, error) {
	return scanFile(tx.tx.QueryRow(`SELECT `+selectFileColumns+` FROM files WHERE path=?`, path))
}

// GetFileByID looks up a file by its durable ID.
func (s *Store) GetFileByID(id int64) (File, bool, error) {
	return scanFile(s.db.QueryRow(`SELECT `+selectFileColumns+` FROM files WHERE id=?`, id))
}

func (tx *Tx) GetFileByID(id int64) (File, bool, error) {
	return scanFile(tx.tx.QueryRow(`SELECT `+selectFileColumns+` FROM files WHERE id=?`, id))
}

// FindFileByBasename looks up a file whose path equals base or whose
// final path segment equals base, for the resolver's fallback lookup on
// an include argument that didn't resolve as a literal path (§4.F).
// Ambiguous matches return the first by id; this is a best-effort
// fallback, not a uniqueness-enforcing lookup like FindFileBySymbol.
func (s *Store) FindFileByBasename(base string) (File, bool, error) {
	return scanFile(s.db.QueryRow(
		`SELECT `+selectFileColumns+` FROM files WHERE path=? OR path LIKE ? ORDER BY id LIMIT 1`,
		base, "%/"+base))
}

// ReplaceFileSymbolsAndEdges performs the delete-by-file, re-insert
// lifecycle mandated by §3: on re-analysis, a file's prior symbols and
// edges are wholly replaced under a single transaction.
func (s *Store) ReplaceFileSymbolsAndEdges(fileID int64, symbols []Symbol, edges []Edge) error {
	return s.Transaction(func(tx *Tx) error {
		if _, err := tx.tx.Exec(`DELETE FROM symbols WHERE file_id=?`, fileID); err != nil {
			return berrors.NewStoreError("replace_symbols", err)
		}
		if _, err := tx.tx.Exec(`DELETE FROM edges WHERE source_file_id=?`, fileID); err != nil {
			return berrors.NewStoreError("replace_edges", err)
		}
		for _, sym := range symbols {
			sym.FileID = fileID
			if _, err := tx.AddSymbol(sym); err != nil {
				return err
			}
		}
		for _, e := range edges {
			e.SourceFileID = fileID
			if _, err := tx.AddEdge(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddSymbol inserts a symbol, upserting on the (file_id, fqn, kind) natural
// key so idempotent re-analysis of unchanged content writes nothing new.
func (s *Store) AddSymbol(sym Symbol) (int64, error) {
	var id int64
	err := s.Transaction(func(tx *Tx) error {
		i, err := tx.AddSymbol(sym)
		id = i
		return err
	})
	return id, err
}

func (tx *Tx) AddSymbol(sym Symbol) (int64, error) {
	var parentID any
	if sym.ParentSymbolID != nil {
		parentID = *sym.ParentSymbolID
	}
	_, err := tx.tx.Exec(`
		INSERT INTO symbols (file_id, kind, short_name, fqn, namespace, visibility, parent_symbol_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, fqn, kind) DO UPDATE SET short_name=excluded.short_name, namespace=excluded.namespace, visibility=excluded.visibility, parent_symbol_id=excluded.parent_symbol_id`,
		sym.FileID, string(sym.Kind), sym.ShortName, sym.FQN, sym.Namespace, string(sym.Visibility), parentID)
	if err != nil {
		return 0, berrors.NewStoreError("add_symbol", err)
	}

	// last_insert_rowid() only tracks inserts, not the ON CONFLICT UPDATE
	// path above, so look the row back up by its natural key.
	var id int64
	row := tx.tx.QueryRow(`SELECT id FROM symbols WHERE file_id=? AND fqn=? AND kind=?`, sym.FileID, sym.FQN, string(sym.Kind))
	if scanErr := row.Scan(&id); scanErr != nil {
		return 0, berrors.NewStoreError("add_symbol", scanErr)
	}
	return id, nil
}

// FindFileBySymbol resolves an FQN to the file that defines it. If more
// than one file defines the same FQN, that is an AmbiguousSymbolError
// surfaced at resolve time per §3's "at most one" invariant.
func (s *Store) FindFileBySymbol(fqn string) (File, bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT file_id FROM symbols WHERE fqn=?`, fqn)
	if err != nil {
		return File{}, false, berrors.NewStoreError("find_file_by_symbol", err)
	}
	defer rows.Close()

	var fileIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return File{}, false, berrors.NewStoreError("find_file_by_symbol", err)
		}
		fileIDs = append(fileIDs, id)
	}
	if err := rows.Err(); err != nil {
		return File{}, false, berrors.NewStoreError("find_file_by_symbol", err)
	}

	if len(fileIDs) == 0 {
		return File{}, false, nil
	}
	if len(fileIDs) > 1 {
		var paths []string
		for _, id := range fileIDs {
			if f, ok, _ := s.GetFileByID(id); ok {
				paths = append(paths, f.Path)
			}
		}
		return File{}, false, berrors.NewAmbiguousSymbolError(fqn, paths)
	}

	f, ok, err := s.GetFileByID(fileIDs[0])
	return f, ok, err
}

// AddEdge inserts a dependency edge. is_resolved is derived from
// TargetFileID (§3 invariant: is_resolved ⇔ target_file_id non-null).
func (s *Store) AddEdge(e Edge) (int64, error) {
	var id int64
	err := s.Transaction(func(tx *Tx) error {
		i, err := tx.AddEdge(e)
		id = i
		return err
	})
	return id, err
}

func (tx *Tx) AddEdge(e Edge) (int64, error) {
	var targetFileID any
	if e.TargetFileID != nil {
		targetFileID = *e.TargetFileID
		e.IsResolved = true
	}
	res, err := tx.tx.Exec(`
		INSERT INTO edges (source_file_id, target_symbol, target_file_id, kind, line, is_conditional, is_resolved, context, externally_satisfied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SourceFileID, e.TargetSymbol, targetFileID, string(e.Kind), e.Line, boolToInt(e.IsConditional), boolToInt(e.IsResolved), e.Context, boolToInt(e.ExternallySatisfied))
	if err != nil {
		return 0, berrors.NewStoreError("add_edge", err)
	}
	return res.LastInsertId()
}

// ResolveEdge binds edgeID's target to targetFileID. Edges never un-resolve
// (§3 lifecycle), so this is a no-op if already resolved to a different
// target than requested would indicate a logic error upstream, but binding
// to the same target twice is safe and idempotent.
func (s *Store) ResolveEdge(edgeID, targetFileID int64) error {
	return s.Transaction(func(tx *Tx) error {
		_, err := tx.tx.Exec(`UPDATE edges SET target_file_id=?, is_resolved=1 WHERE id=? AND is_resolved=0`, targetFileID, edgeID)
		if err != nil {
			return berrors.NewStoreError("resolve_edge", err)
		}
		return nil
	})
}

// MarkEdgeExternallySatisfied records that a host-runtime builtin satisfies
// the edge; it remains unresolved (no target file) but is excluded from
// warning accumulation.
func (s *Store) MarkEdgeExternallySatisfied(edgeID int64) error {
	return s.Transaction(func(tx *Tx) error {
		_, err := tx.tx.Exec(`UPDATE edges SET externally_satisfied=1 WHERE id=?`, edgeID)
		if err != nil {
			return berrors.NewStoreError("mark_externally_satisfied", err)
		}
		return nil
	})
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()
	var edges []Edge
	for rows.Next() {
		var e Edge
		var kind string
		var targetFileID sql.NullInt64
		var isConditional, isResolved, externallySatisfied int
		if err := rows.Scan(&e.ID, &e.SourceFileID, &e.TargetSymbol, &targetFileID, &kind, &e.Line, &isConditional, &isResolved, &e.Context, &externallySatisfied); err != nil {
			return nil, berrors.NewStoreError("scan_edges", err)
		}
		e.Kind = EdgeKind(kind)
		e.IsConditional = isConditional != 0
		e.IsResolved = isResolved != 0
		e.ExternallySatisfied = externallySatisfied != 0
		if targetFileID.Valid {
			v := targetFileID.Int64
			e.TargetFileID = &v
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

const selectEdgeColumns = `id, source_file_id, target_symbol, target_file_id, kind, line, is_conditional, is_resolved, context, externally_satisfied`

// GetUnresolvedEdges returns every edge not yet bound to a target file and
// not marked externally satisfied, the work-list the resolver fixpoint
// drains each pass.
func (s *Store) GetUnresolvedEdges() ([]Edge, error) {
	rows, err := s.db.Query(`SELECT ` + selectEdgeColumns + ` FROM edges WHERE is_resolved=0 AND externally_satisfied=0`)
	if err != nil {
		return nil, berrors.NewStoreError("get_unresolved_edges", err)
	}
	return scanEdges(rows)
}

// GetEdgesOf returns all edges whose source is fileID.
func (s *Store) GetEdgesOf(fileID int64) ([]Edge, error) {
	rows, err := s.db.Query(`SELECT `+selectEdgeColumns+` FROM edges WHERE source_file_id=?`, fileID)
	if err != nil {
		return nil, berrors.NewStoreError("get_edges_of", err)
	}
	return scanEdges(rows)
}

// AddAutoloadRule registers a rule. Rules are created once at startup and
// read-only thereafter (§3 lifecycle).
func (s *Store) AddAutoloadRule(r AutoloadRule) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO autoload_rules (kind, prefix, path, priority) VALUES (?, ?, ?, ?)`,
		string(r.Kind), r.Prefix, r.Path, r.Priority)
	if err != nil {
		return 0, berrors.NewStoreError("add_autoload_rule", err)
	}
	return res.LastInsertId()
}

// GetAutoloadRulesOrdered returns every rule ordered for resolution: prefix
// length descending, then priority descending, then insertion order — the
// tie-break §4.E requires for longest-match-wins with priority breaking
// ties.
func (s *Store) GetAutoloadRulesOrdered() ([]AutoloadRule, error) {
	rows, err := s.db.Query(`SELECT id, kind, prefix, path, priority FROM autoload_rules ORDER BY length(prefix) DESC, priority DESC, id ASC`)
	if err != nil {
		return nil, berrors.NewStoreError("get_autoload_rules_ordered", err)
	}
	defer rows.Close()

	var rules []AutoloadRule
	for rows.Next() {
		var r AutoloadRule
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Prefix, &r.Path, &r.Priority); err != nil {
			return nil, berrors.NewStoreError("get_autoload_rules_ordered", err)
		}
		r.Kind = AutoloadRuleKind(kind)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// maxClosureDepth bounds traversal depth to guarantee termination even
// under corrupt state (§4.B recommends 256).
const maxClosureDepth = 256

// GetRequiredFilesClosure walks resolved edges from entryID and returns
// files in reverse-postorder: for every resolved non-back edge u → v,
// v appears before u. Each file is visited at most once; cycles are
// tolerated by cutting the back edge encountered later, never erroring.
func (s *Store) GetRequiredFilesClosure(entryID int64) ([]File, error) {
	edgesBySource := make(map[int64][]Edge)
	visitState := make(map[int64]int) // 0=unvisited, 1=on stack, 2=done
	var order []int64

	var visit func(fileID int64, depth int) error
	visit = func(fileID int64, depth int) error {
		if visitState[fileID] == 2 {
			return nil
		}
		if visitState[fileID] == 1 {
			return nil // back edge: cut it, do not recurse further
		}
		if depth > maxClosureDepth {
			return nil // safety limit: stop traversing this branch
		}
		visitState[fileID] = 1

		edges, ok := edgesBySource[fileID]
		if !ok {
			var err error
			edges, err = s.GetEdgesOf(fileID)
			if err != nil {
				return err
			}
			edgesBySource[fileID] = edges
		}

		for _, e := range edges {
			if !e.IsResolved || e.TargetFileID == nil {
				continue
			}
			if err := visit(*e.TargetFileID, depth+1); err != nil {
				return err
			}
		}

		visitState[fileID] = 2
		order = append(order, fileID) // postorder: dependees already appended
		return nil
	}

	if err := visit(entryID, 0); err != nil {
		return nil, err
	}

	files := make([]File, 0, len(order))
	for _, id := range order {
		f, ok, err := s.GetFileByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, f)
		}
	}
	return files, nil
}

// sortAutoloadRules is exposed for callers (the driver's rule seeding) that load
// rules outside of SQL ordering, e.g. when merging config-file rules with
// composer.json-derived rules before they are persisted.
func sortAutoloadRules(rules []AutoloadRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Priority > rules[j].Priority
	})
}

// SortAutoloadRules is the exported form of sortAutoloadRules.
func SortAutoloadRules(rules []AutoloadRule) { sortAutoloadRules(rules) }
