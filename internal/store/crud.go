package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ml-archive/dandy/internal/schema"
	"github.com/ml-archive/dandy/internal/value"
)

// Predicate narrows a fetch to records whose named attribute equals a value.
// A nil predicate matches every record of the entity.
type Predicate struct {
	Property string
	Value    value.Value
}

// Insert creates a fresh record of the given entity and registers it with
// the store. The record exists only in memory until Save.
func (s *Store) Insert(e *schema.Entity) *Record {
	r := &Record{
		id:     uuid.NewString(),
		entity: e,
		store:  s,
		attrs:  make(map[string]value.Value),
		toOne:  make(map[string]*Record),
		toMany: make(map[string]Collection),
		loaded: make(map[string]bool),
		dirty:  true,
	}
	// Nothing to hydrate for a brand-new record.
	for name := range e.FlattenedRelationships() {
		r.loaded[name] = true
	}
	s.records[r.id] = r
	return r
}

// Delete tombstones a record. The row disappears on the next Save; until
// then the record stays live so pending references can be inspected.
func (s *Store) Delete(r *Record) {
	if r == nil {
		return
	}
	r.deleted = true
	r.dirty = true
}

// Fetch returns every record of the entity matching the predicate, merging
// unsaved in-memory inserts with rows on disk. Live records win over their
// stored versions.
func (s *Store) Fetch(e *schema.Entity, pred *Predicate) ([]*Record, error) {
	var out []*Record

	for _, r := range s.records {
		if r.entity.Name != e.Name || r.deleted {
			continue
		}
		if matches(r, pred) {
			out = append(out, r)
		}
	}

	ids, err := s.fetchIDs(e, pred)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, live := s.records[id]; live {
			continue // the live version already matched (or was edited away)
		}
		r, err := s.loadRecord(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, nil
}

func matches(r *Record, pred *Predicate) bool {
	if pred == nil {
		return true
	}
	return value.Equal(r.attrs[pred.Property], pred.Value)
}

func (s *Store) fetchIDs(e *schema.Entity, pred *Predicate) ([]string, error) {
	query := `SELECT id FROM records WHERE entity = ?`
	args := []any{e.Name}
	if pred != nil {
		encoded, err := encodeValue(pred.Value)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", e.Name, err)
		}
		query = `
			SELECT r.id FROM records r
			JOIN attributes a ON a.record_id = r.id
			WHERE r.entity = ? AND a.name = ? AND a.value = ?
		`
		args = []any{e.Name, pred.Property, encoded}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", e.Name, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", e.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadRecord hydrates one record row plus its attributes. Relationships stay
// unhydrated until first access.
func (s *Store) loadRecord(id string) (*Record, error) {
	if r, live := s.records[id]; live {
		return r, nil
	}

	var entityName string
	if err := s.db.QueryRow(`SELECT entity FROM records WHERE id = ?`, id).Scan(&entityName); err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	e := s.model.Entity(entityName)
	if e == nil {
		return nil, fmt.Errorf("load record %s: entity %q not in model", id, entityName)
	}

	r := &Record{
		id:        id,
		entity:    e,
		store:     s,
		attrs:     make(map[string]value.Value),
		toOne:     make(map[string]*Record),
		toMany:    make(map[string]Collection),
		loaded:    make(map[string]bool),
		persisted: true,
	}

	rows, err := s.db.Query(`SELECT name, value FROM attributes WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, encoded string
		if err := rows.Scan(&name, &encoded); err != nil {
			return nil, fmt.Errorf("load record %s: %w", id, err)
		}
		v, err := decodeValue(encoded)
		if err != nil {
			return nil, fmt.Errorf("load record %s: %w", id, err)
		}
		r.attrs[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}

	s.records[id] = r
	return r, nil
}

// hydrate loads one relationship's rows on first access. Failures degrade to
// an empty relationship with a diagnostic; accessors stay non-failing.
func (r *Record) hydrate(rel schema.Relationship) {
	if r.loaded[rel.Name] {
		return
	}
	r.loaded[rel.Name] = true
	if !r.persisted {
		return
	}

	rows, err := r.store.db.Query(`
		SELECT target_id FROM relations
		WHERE owner_id = ? AND name = ?
		ORDER BY position
	`, r.id, rel.Name)
	if err != nil {
		r.store.log.Warnw("failed to hydrate relationship",
			"entity", r.entity.Name, "property", rel.Name, "error", err)
		return
	}
	defer rows.Close()

	var targets []*Record
	for rows.Next() {
		var targetID string
		if err := rows.Scan(&targetID); err != nil {
			r.store.log.Warnw("failed to hydrate relationship",
				"entity", r.entity.Name, "property", rel.Name, "error", err)
			return
		}
		target, err := r.store.loadRecord(targetID)
		if err != nil {
			r.store.log.Warnw("dangling relationship target skipped",
				"entity", r.entity.Name, "property", rel.Name, "target", targetID, "error", err)
			continue
		}
		targets = append(targets, target)
	}

	if rel.ToMany {
		if rel.Ordered {
			r.toMany[rel.Name] = NewRecordList(targets...)
		} else {
			r.toMany[rel.Name] = NewRecordSet(targets...)
		}
	} else if len(targets) > 0 {
		r.toOne[rel.Name] = targets[0]
	}
}

// Save flushes every pending change in one transaction: tombstoned records
// are removed, dirty records rewritten. Attribute rows are rewritten whole;
// relationship rows only for relationships that were hydrated or assigned,
// so untouched rows on disk survive.
func (s *Store) Save() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer tx.Rollback()

	// Deletes first so their rows (and cascaded attribute/relation rows)
	// are gone before reinsertion of survivors' relations.
	for id, r := range s.records {
		if !r.deleted {
			continue
		}
		if r.persisted {
			if _, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
				return fmt.Errorf("save: delete %s: %w", id, err)
			}
		}
	}

	// Record rows before dependent rows, so relation foreign keys resolve.
	for id, r := range s.records {
		if r.deleted || !r.dirty {
			continue
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO records (id, entity) VALUES (?, ?)`,
			id, r.entity.Name); err != nil {
			return fmt.Errorf("save: record %s: %w", id, err)
		}
	}

	for id, r := range s.records {
		if r.deleted || !r.dirty {
			continue
		}
		if err := s.saveAttributes(tx, r); err != nil {
			return fmt.Errorf("save: record %s: %w", id, err)
		}
		if err := s.saveRelations(tx, r); err != nil {
			return fmt.Errorf("save: record %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	for id, r := range s.records {
		if r.deleted {
			delete(s.records, id)
			continue
		}
		if r.dirty {
			r.persisted = true
			r.dirty = false
		}
	}
	return nil
}

func (s *Store) saveAttributes(tx *sql.Tx, r *Record) error {
	if _, err := tx.Exec(`DELETE FROM attributes WHERE record_id = ?`, r.id); err != nil {
		return err
	}
	for name, v := range r.attrs {
		encoded, err := encodeValue(v)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO attributes (record_id, name, value) VALUES (?, ?, ?)`,
			r.id, name, encoded); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) saveRelations(tx *sql.Tx, r *Record) error {
	for name := range r.loaded {
		if _, err := tx.Exec(`DELETE FROM relations WHERE owner_id = ? AND name = ?`, r.id, name); err != nil {
			return fmt.Errorf("relationship %s: %w", name, err)
		}
		if target, ok := r.toOne[name]; ok {
			if target.deleted {
				continue
			}
			if err := insertRelation(tx, r.id, name, target, 0); err != nil {
				return err
			}
			continue
		}
		if c, ok := r.toMany[name]; ok {
			pos := 0
			for _, target := range c.Records() {
				if target.deleted {
					continue
				}
				if err := insertRelation(tx, r.id, name, target, pos); err != nil {
					return err
				}
				pos++
			}
		}
	}
	return nil
}

func insertRelation(tx *sql.Tx, ownerID, name string, target *Record, pos int) error {
	if _, err := tx.Exec(`INSERT INTO relations (owner_id, name, target_id, position) VALUES (?, ?, ?, ?)`,
		ownerID, name, target.id, pos); err != nil {
		return fmt.Errorf("relationship %s: %w", name, err)
	}
	return nil
}
