package postgres

import (
	"fmt"
	"strings"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// entityColumns is the column list shared by every SELECT, in scan order.
const entityColumns = `id, owner_id, parent_id, kind, name, mime_type, size_bytes,
	content_ref, content_url, starred, in_trash, deleted_at, created_at, updated_at`

// schemaStatements returns the DDL creating the entities table and its indexes.
func schemaStatements(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL CHECK (kind IN ('file', 'folder')),
	name        TEXT NOT NULL,
	mime_type   TEXT NOT NULL DEFAULT '',
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	content_ref TEXT NOT NULL DEFAULT '',
	content_url TEXT NOT NULL DEFAULT '',
	starred     BOOLEAN NOT NULL DEFAULT FALSE,
	in_trash    BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at  TIMESTAMPTZ NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_parent_idx ON %s (owner_id, parent_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_starred_idx ON %s (owner_id, starred)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_trash_idx ON %s (owner_id, in_trash)`, table, table),
	}
}

// buildSelect renders a metadata.Query into SQL with positional arguments.
func buildSelect(table string, q metadata.Query) (string, []any) {
	var (
		conds = []string{"owner_id = $1"}
		args  = []any{q.OwnerID}
	)

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if q.ParentID != nil {
		add("parent_id", *q.ParentID)
	}
	if q.Starred != nil {
		add("starred", *q.Starred)
	}
	if q.InTrash != nil {
		add("in_trash", *q.InTrash)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		entityColumns, table, strings.Join(conds, " AND "), orderClause(q.OrderBy))
	return sql, args
}

// orderClause mirrors metadata.SortEntities, including the ID tie-break.
func orderClause(order metadata.Order) string {
	switch order {
	case metadata.OrderKindName:
		return `(kind = 'folder') DESC, name COLLATE "C" ASC, id ASC`
	case metadata.OrderUpdatedDesc:
		return "updated_at DESC, id ASC"
	case metadata.OrderDeletedDesc:
		return "deleted_at DESC NULLS LAST, id ASC"
	default:
		return "created_at ASC, id ASC"
	}
}
