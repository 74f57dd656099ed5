package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"quickplan/app/models"
)

// Neo4jStore keeps each task as a :Task node. The parent reference lives in
// the parent_id property so that it survives the parent's deletion; a
// HAS_PARENT relationship is also drawn for graph queries. Ids come from a
// :Sequence node that is never deleted, so they are not reused.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	now      func() time.Time
}

var _ TaskStore = (*Neo4jStore)(nil)

// NewNeo4jStore wraps a connected driver and ensures the schema constraints.
func NewNeo4jStore(ctx context.Context, driver neo4j.DriverWithContext, database string) (*Neo4jStore, error) {
	s := &Neo4jStore{driver: driver, database: database, now: time.Now}
	for _, stmt := range []string{
		"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
		"CREATE INDEX task_parent_order IF NOT EXISTS FOR (t:Task) ON (t.parent_id, t.sort_order)",
	} {
		if _, err := s.write(ctx, "migrate", stmt, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

const returnTask = "RETURN t.id AS id, t.title AS title, t.hours AS hours, t.notes AS notes, " +
	"t.resource AS resource, t.parent_id AS parent_id, t.sort_order AS sort_order, " +
	"t.created_at AS created_at, t.updated_at AS updated_at"

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// write runs a single statement that returns an "affected" count.
func (s *Neo4jStore) write(ctx context.Context, op, cypher string, params map[string]any) (int64, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var n int64
		if res.Next(ctx) {
			if v, ok := res.Record().Get("affected"); ok {
				n, _ = v.(int64)
			}
		}
		return n, res.Err()
	})
	if err != nil {
		return 0, wrap(op, err)
	}
	return result.(int64), nil
}

func (s *Neo4jStore) Insert(ctx context.Context, f models.Fields) (int64, error) {
	ts := s.now().UTC()
	var parent any
	if f.ParentID != nil {
		parent = *f.ParentID
	}
	id, err := s.write(ctx, "insert",
		"MERGE (seq:Sequence {name: 'task'}) "+
			"ON CREATE SET seq.value = 0 "+
			"SET seq.value = seq.value + 1 "+
			"WITH seq.value AS id "+
			"OPTIONAL MATCH (s:Task) WHERE ($parentID IS NULL AND s.parent_id IS NULL) OR s.parent_id = $parentID "+
			"WITH id, max(s.sort_order) AS maxOrder "+
			"CREATE (t:Task {id: id, title: $title, hours: $hours, notes: $notes, resource: $resource, "+
			"parent_id: $parentID, sort_order: coalesce(maxOrder + 1, 0), created_at: $ts, updated_at: $ts}) "+
			"WITH t "+
			"OPTIONAL MATCH (p:Task {id: $parentID}) "+
			"FOREACH (_ IN CASE WHEN p IS NULL THEN [] ELSE [1] END | CREATE (t)-[:HAS_PARENT]->(p)) "+
			"RETURN t.id AS affected",
		map[string]any{
			"title":    f.Title,
			"hours":    f.Hours,
			"notes":    f.Notes,
			"resource": f.Resource,
			"parentID": parent,
			"ts":       ts,
		},
	)
	return id, err
}

func (s *Neo4jStore) Update(ctx context.Context, id int64, f models.Fields) (int64, error) {
	return s.write(ctx, "update",
		"MATCH (t:Task {id: $id}) "+
			"SET t.title = $title, t.hours = $hours, t.notes = $notes, t.resource = $resource, t.updated_at = $ts "+
			"RETURN count(t) AS affected",
		map[string]any{
			"id":       id,
			"title":    f.Title,
			"hours":    f.Hours,
			"notes":    f.Notes,
			"resource": f.Resource,
			"ts":       s.now().UTC(),
		},
	)
}

func (s *Neo4jStore) SetRank(ctx context.Context, id int64, rank int) (int64, error) {
	return s.write(ctx, "set rank",
		"MATCH (t:Task {id: $id}) SET t.sort_order = $rank RETURN count(t) AS affected",
		map[string]any{"id": id, "rank": int64(rank)},
	)
}

// DeleteOne removes the node and its relationships. Subtasks keep their
// parent_id property and become orphans.
func (s *Neo4jStore) DeleteOne(ctx context.Context, id int64) (int64, error) {
	return s.write(ctx, "delete",
		"MATCH (t:Task {id: $id}) WITH t, t.id AS gone DETACH DELETE t RETURN count(gone) AS affected",
		map[string]any{"id": id},
	)
}

func (s *Neo4jStore) DeleteAll(ctx context.Context) (int64, error) {
	return s.write(ctx, "delete all",
		"MATCH (t:Task) WITH t, t.id AS gone DETACH DELETE t RETURN count(gone) AS affected",
		nil,
	)
}

func (s *Neo4jStore) Get(ctx context.Context, id int64) (*models.Task, error) {
	tasks, err := s.read(ctx, "get", "MATCH (t:Task {id: $id}) "+returnTask, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, models.ErrNotFound
	}
	return &tasks[0], nil
}

func (s *Neo4jStore) Scan(ctx context.Context, filter Filter) ([]models.Task, error) {
	cypher := "MATCH (t:Task) "
	params := map[string]any{}
	switch filter.Scope {
	case ScopeTopLevel:
		cypher += "WHERE t.parent_id IS NULL "
	case ScopeChildren:
		cypher += "WHERE t.parent_id = $parentID "
		params["parentID"] = filter.ParentID
	}
	cypher += returnTask + " ORDER BY sort_order ASC, created_at DESC, id DESC"
	return s.read(ctx, "scan", cypher, params)
}

func (s *Neo4jStore) read(ctx context.Context, op, cypher string, params map[string]any) ([]models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		tasks := []models.Task{}
		for res.Next(ctx) {
			task, err := recordToTask(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return result.([]models.Task), nil
}

func recordToTask(record *neo4j.Record) (models.Task, error) {
	var t models.Task
	values := record.AsMap()

	id, ok := values["id"].(int64)
	if !ok {
		return t, fmt.Errorf("task record without integer id")
	}
	t.ID = id
	t.Title, _ = values["title"].(string)
	t.Notes, _ = values["notes"].(string)
	t.Resource, _ = values["resource"].(string)
	switch h := values["hours"].(type) {
	case float64:
		t.Hours = h
	case int64:
		t.Hours = float64(h)
	}
	if p, ok := values["parent_id"].(int64); ok {
		t.ParentID = &p
	}
	if o, ok := values["sort_order"].(int64); ok {
		t.SortOrder = int(o)
	}
	t.CreatedAt, _ = values["created_at"].(time.Time)
	t.UpdatedAt, _ = values["updated_at"].(time.Time)
	return t, nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return wrap("ping", s.driver.VerifyConnectivity(ctx))
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
