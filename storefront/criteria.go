package storefront

import (
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// unpaged lifts the page size List applies by default.
var unpaged = repository.SelectPaginate(0, 0)

// orderBy qualifies the column with the table alias, so joined relations
// sharing a column name do not make it ambiguous.
func orderBy(column string, desc bool) repository.SelectCriteria {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.? "+direction, bun.Ident(column))
	})
}

// containsAny matches rows where any of columns contains term, ignoring
// case. LIKE wildcards in term match literally.
func containsAny(term string, columns ...string) repository.SelectCriteria {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		if term == "" || len(columns) == 0 {
			return q
		}
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, column := range columns {
				q = q.WhereOr(`LOWER(?TableAlias.?) LIKE ? ESCAPE '\'`, bun.Ident(column), pattern)
			}
			return q
		})
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// between bounds column on both sides; a nil bound is open.
func between(column string, min, max *int64) repository.SelectCriteria {
	return repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		if min != nil {
			q = q.Where("?TableAlias.? >= ?", bun.Ident(column), *min)
		}
		if max != nil {
			q = q.Where("?TableAlias.? <= ?", bun.Ident(column), *max)
		}
		return q
	})
}

// changes collects the SET clauses of an update. Once an update has any SET
// clause bun writes only those, so updated_at is always part of it.
type changes []repository.UpdateCriteria

func newChanges() changes {
	return changes{repository.UpdateSetColumn("updated_at", time.Now().UTC())}
}

func (c changes) set(column string, value any) changes {
	return append(c, repository.UpdateSetColumn(column, value))
}
