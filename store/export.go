package store

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
	"github.com/teranos/reductionist/pathdict"
)

// tagKeySeparator joins sorted tags into meanings.tag_key
const tagKeySeparator = "\x1f"

// Build is one exported bundle
type Build struct {
	ID            string
	Bundle        string
	Fingerprint   string
	TotalOutputs  string // decimal; may exceed int64
	TotalMeanings int
	ExportedAt    time.Time
}

// ExportResult counts the rows written by Export
type ExportResult struct {
	BuildID  string
	Tags     int
	Paths    int
	Meanings int
}

// Meaning is an expressible meaning found in the index
type Meaning struct {
	BuildID string
	ID      int
	Tags    []string
	Paths   []pathdict.Entry
}

// Export writes b into the index in one transaction, replacing any earlier
// export of the same bundle name. An empty buildID gets a fresh one.
func (s *Store) Export(ctx context.Context, b *bundle.Bundle, buildID string) (*ExportResult, error) {
	if buildID == "" {
		buildID = uuid.NewString()
	}
	stats, err := b.Stats()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin export")
	}
	res, err := s.export(ctx, tx, b, buildID, stats)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit export")
	}

	s.log.Infow("Bundle exported",
		logger.FieldBundle, b.Name,
		logger.FieldBuildID, buildID,
		logger.FieldPaths, res.Paths,
		logger.FieldMeanings, res.Meanings,
	)
	return res, nil
}

func (s *Store) export(ctx context.Context, tx *sql.Tx, b *bundle.Bundle, buildID string, stats *bundle.Stats) (*ExportResult, error) {
	if _, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE bundle = ?", b.Name); err != nil {
		return nil, errors.Wrapf(err, "remove previous export of %s", b.Name)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO builds (build_id, bundle, fingerprint, total_outputs, total_meanings) VALUES (?, ?, ?, ?, ?)",
		buildID, b.Name, stats.Fingerprint, stats.TotalOutputs.String(), b.Meanings.Len(),
	); err != nil {
		return nil, errors.Wrap(err, "insert build")
	}

	res := &ExportResult{BuildID: buildID}

	tags := b.Tags()
	if err := insertEach(ctx, tx, "INSERT INTO tags (build_id, tag_id, tag) VALUES (?, ?, ?)", len(tags),
		func(i int) []interface{} { return []interface{}{buildID, i, tags[i]} },
	); err != nil {
		return nil, errors.Wrap(err, "insert tags")
	}
	res.Tags = len(tags)

	entries := b.Dictionary.Entries()
	if err := insertEach(ctx, tx, "INSERT INTO paths (build_id, path_key, path) VALUES (?, ?, ?)", len(entries),
		func(i int) []interface{} { return []interface{}{buildID, entries[i].Key, entries[i].Path} },
	); err != nil {
		return nil, errors.Wrap(err, "insert paths")
	}
	res.Paths = len(entries)

	meanings := b.Meanings.Meanings()
	if err := insertEach(ctx, tx, "INSERT INTO meanings (build_id, meaning_id, tag_key) VALUES (?, ?, ?)", len(meanings),
		func(i int) []interface{} { return []interface{}{buildID, meanings[i].ID, tagKey(meanings[i].Tags)} },
	); err != nil {
		return nil, errors.Wrap(err, "insert meanings")
	}
	res.Meanings = len(meanings)

	var tagRows, pathRows [][]interface{}
	for _, m := range meanings {
		for _, tag := range m.Tags {
			id, err := strconv.Atoi(b.Grammar.TagToID[tag])
			if err != nil {
				return nil, errors.Mark(errors.Newf("meaning %d carries tag %q with no id", m.ID, tag), errors.ErrFormat)
			}
			tagRows = append(tagRows, []interface{}{buildID, m.ID, id})
		}
		for _, key := range m.Paths {
			pathRows = append(pathRows, []interface{}{buildID, m.ID, key})
		}
	}
	if err := insertEach(ctx, tx, "INSERT INTO meaning_tags (build_id, meaning_id, tag_id) VALUES (?, ?, ?)", len(tagRows),
		func(i int) []interface{} { return tagRows[i] },
	); err != nil {
		return nil, errors.Wrap(err, "insert meaning tags")
	}
	if err := insertEach(ctx, tx, "INSERT INTO meaning_paths (build_id, meaning_id, path_key) VALUES (?, ?, ?)", len(pathRows),
		func(i int) []interface{} { return pathRows[i] },
	); err != nil {
		return nil, errors.Wrap(err, "insert meaning paths")
	}
	return res, nil
}

// insertEach runs one prepared insert per row
func insertEach(ctx context.Context, tx *sql.Tx, query string, n int, row func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	return nil
}

// Builds lists exported bundles by name
func (s *Store) Builds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, bundle, fingerprint, total_outputs, total_meanings, exported_at FROM builds ORDER BY bundle")
	if err != nil {
		return nil, errors.Wrap(err, "query builds")
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Bundle, &b.Fingerprint, &b.TotalOutputs, &b.TotalMeanings, &b.ExportedAt); err != nil {
			return nil, errors.Wrap(err, "scan build")
		}
		out = append(out, b)
	}
	return out, errors.Wrap(rows.Err(), "iterate builds")
}

// FindMeaningByTags returns the meaning of bundle carrying exactly tags, with its paths
func (s *Store) FindMeaningByTags(ctx context.Context, bundleName string, tags []string) (*Meaning, error) {
	canonical := canonicalTags(tags)

	m := &Meaning{Tags: canonical}
	err := s.db.QueryRowContext(ctx,
		`SELECT m.build_id, m.meaning_id FROM meanings m
		 JOIN builds b ON b.build_id = m.build_id
		 WHERE b.bundle = ? AND m.tag_key = ?`,
		bundleName, tagKey(canonical),
	).Scan(&m.BuildID, &m.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("bundle %s has no meaning with exactly the tags [%s]",
			bundleName, strings.Join(canonical, ", "))
	}
	if err != nil {
		return nil, errors.Wrap(err, "query meaning")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.path_key, p.path FROM meaning_paths mp
		 JOIN paths p ON p.build_id = mp.build_id AND p.path_key = mp.path_key
		 WHERE mp.build_id = ? AND mp.meaning_id = ?
		 ORDER BY p.path_key`,
		m.BuildID, m.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query meaning paths")
	}
	defer rows.Close()
	for rows.Next() {
		var e pathdict.Entry
		if err := rows.Scan(&e.Key, &e.Path); err != nil {
			return nil, errors.Wrap(err, "scan meaning path")
		}
		m.Paths = append(m.Paths, e)
	}
	return m, errors.Wrap(rows.Err(), "iterate meaning paths")
}

// canonicalTags sorts and dedupes tags
func canonicalTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func tagKey(sorted []string) string {
	return strings.Join(sorted, tagKeySeparator)
}
