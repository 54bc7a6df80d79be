package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/rowgraph/internal/cursor"
	"github.com/roach88/rowgraph/internal/document"
	"github.com/roach88/rowgraph/internal/ir"
	"github.com/roach88/rowgraph/internal/model"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Documents returns the documents of the named collection as a lazy
// document collection, ordered by id. Each document is an instance of m;
// its id is written to m's key field.
//
// The collection owns the query's rows. Drain or Close it before running the
// next statement on this store.
func (s *Store) Documents(ctx context.Context, m model.Model, name string, opts ...document.Option) (*document.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc
		FROM documents
		WHERE collection = ?
		ORDER BY id COLLATE BINARY ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	cur, err := cursor.NewRows(rows)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	keyField := DocumentKeyField(m)
	docs := cursor.Map[ir.Row, map[string]any](cur, func(row ir.Row) (map[string]any, error) {
		return scanDocument(row, keyField)
	})
	opts = append([]document.Option{document.WithLogger(s.logger)}, opts...)
	return document.NewLazy(m, docs, opts...), nil
}

// FindDocument loads one document by id. Returns ErrNotFound if the
// collection has no such document.
func (s *Store) FindDocument(ctx context.Context, m model.Model, name, id string) (*document.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT doc
		FROM documents
		WHERE collection = ? AND id = ?
	`, name, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s/%s: %w", name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", name, id, err)
	}

	data, err := scanDocument(ir.Row{ir.String(id), ir.String(raw)}, DocumentKeyField(m))
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", name, id, err)
	}
	doc := document.Hydrated(m, data)
	doc.Sync(id, nil, document.SyncOptions{})
	return doc, nil
}

// SaveDocument writes doc to the named collection.
//
// A document that does not exist yet is inserted whole; it keeps its key
// (or the value of its key field) if it has one, otherwise it gets a new ID
// from the store's generator. An existing document is updated with only the
// fields that changed since it was last synced. Either way the document is
// synced afterwards, so Modified reports false until it is changed again.
func (s *Store) SaveDocument(ctx context.Context, name string, doc *document.Document) error {
	x := doc.Export()
	keyField := DocumentKeyField(doc.Model())

	id := keyString(x.Key)
	if id == "" {
		if v, ok := doc.Get(keyField).(ir.Value); ok && !ir.IsEmpty(v) {
			id = keyString(ir.ScalarKey(v))
		}
	}
	if !x.Exists {
		if id == "" {
			id = s.ids.NewID()
		}
		if err := s.insertDocument(ctx, name, id, x, keyField); err != nil {
			return err
		}
		doc.Sync(id, nil, document.SyncOptions{Recursive: true})
		s.logger.Debug("document inserted", "collection", name, "id", id)
		return nil
	}

	if id == "" {
		return fmt.Errorf("save %s: existing document has no key", name)
	}
	changes, err := x.Changes()
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", name, id, err)
	}
	delete(changes.Set, keyField)
	changes.Unset = slicesWithout(changes.Unset, keyField)
	if changes.Empty() {
		s.logger.Debug("document unchanged", "collection", name, "id", id)
		doc.Update()
		return nil
	}

	if err := s.updateDocument(ctx, name, id, changes); err != nil {
		return err
	}
	doc.Update()
	s.logger.Debug("document updated", "collection", name, "id", id,
		"set", len(changes.Set), "unset", len(changes.Unset))
	return nil
}

// DeleteDocument removes a document. Returns ErrNotFound if it does not
// exist.
func (s *Store) DeleteDocument(ctx context.Context, name, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, name, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", name, id, err)
	}
	return checkAffected(res, name, id)
}

func (s *Store) insertDocument(ctx context.Context, name, id string, x document.Export, keyField string) error {
	fields, err := x.Snapshot()
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", name, id, err)
	}
	delete(fields, keyField)

	raw, err := marshalDocument(fields)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", name, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc)
		VALUES (?, ?, ?)
	`, name, id, raw)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", name, id, err)
	}
	return nil
}

// updateDocument applies changes with json_set/json_remove so untouched
// fields are never rewritten.
func (s *Store) updateDocument(ctx context.Context, name, id string, changes document.Changes) error {
	expr := "doc"
	var args []any

	fields := make([]string, 0, len(changes.Set))
	for k := range changes.Set {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		value, err := ir.MarshalCanonical(ir.FromNative(changes.Set[k]))
		if err != nil {
			return fmt.Errorf("save %s/%s: field %s: %w", name, id, k, err)
		}
		expr = fmt.Sprintf("json_set(%s, ?, json(?))", expr)
		args = append(args, jsonPath(k), string(value))
	}
	for _, k := range changes.Unset {
		expr = fmt.Sprintf("json_remove(%s, ?)", expr)
		args = append(args, jsonPath(k))
	}
	args = append(args, name, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET doc = "+expr+" WHERE collection = ? AND id = ?",
		args...)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", name, id, err)
	}
	return checkAffected(res, name, id)
}

func checkAffected(res sql.Result, name, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s/%s: rows affected: %w", name, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", name, id, ErrNotFound)
	}
	return nil
}

// scanDocument decodes an (id, doc) row and writes the id to keyField.
func scanDocument(row ir.Row, keyField string) (map[string]any, error) {
	if len(row) != 2 {
		return nil, fmt.Errorf("document row has %d columns, want 2", len(row))
	}
	raw, ok := row[1].(ir.String)
	if !ok {
		return nil, fmt.Errorf("document column is %T, want text", row[1])
	}
	data, err := ir.UnmarshalObject([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	data[keyField] = ir.Native(row[0])
	return data, nil
}

// marshalDocument encodes fields as canonical JSON for storage.
func marshalDocument(fields map[string]any) (string, error) {
	obj := make(ir.Object, len(fields))
	for k, v := range fields {
		obj[k] = ir.FromNative(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// DocumentKeyField is the field a document's id is stored in: the model's
// single key field, or "id".
func DocumentKeyField(m model.Model) string {
	if m != nil {
		if kf := m.KeyFields(); len(kf) == 1 {
			return kf[0]
		}
	}
	return "id"
}

func keyString(k ir.Key) string {
	scalar := k.Scalar()
	if k.IsEmpty() || scalar == nil {
		return ""
	}
	if s, ok := scalar.(ir.String); ok {
		return string(s)
	}
	return k.String()
}

// jsonPath addresses a top-level field: $."name".
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func slicesWithout(in []string, drop string) []string {
	out := in[:0]
	for _, s := range in {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
