package repository

import (
	"strconv"
	"strings"

	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
)

// predicate is one WHERE condition and the value bound to it. expr is a
// column and operator, e.g. "event_type =". The placeholder is appended
// when the list is rendered.
type predicate struct {
	expr  string
	value any
}

// predicates is an ordered, additive list of conditions. Placeholder
// positions are derived from list order at render time, so conditions can be
// added or omitted freely without renumbering.
type predicates []predicate

func (p *predicates) add(expr string, value any) {
	*p = append(*p, predicate{expr: expr, value: value})
}

// where renders " WHERE a = $1 AND b = $2" (or "" when empty) and the
// positional arguments in the same order.
func (p predicates) where() (string, []any) {
	if len(p) == 0 {
		return "", nil
	}
	var sb strings.Builder
	args := make([]any, 0, len(p))
	sb.WriteString(" WHERE ")
	for i, pr := range p {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		args = append(args, pr.value)
		sb.WriteString(pr.expr)
		sb.WriteString(" $")
		sb.WriteString(strconv.Itoa(len(args)))
	}
	return sb.String(), args
}

func filterPredicates(f model.QueryFilter) predicates {
	var p predicates
	if f.EventType != nil {
		p.add("event_type =", *f.EventType)
	}
	if f.Severity != nil {
		p.add("severity =", *f.Severity)
	}
	if f.From != nil {
		p.add("created_at >=", f.From.UTC())
	}
	if f.To != nil {
		p.add("created_at <=", f.To.UTC())
	}
	return p
}

// builtQuery holds the page query and the count query sharing one WHERE.
type builtQuery struct {
	pageSQL   string
	pageArgs  []any
	countSQL  string
	countArgs []any
}

// buildQuery renders the page and count statements for f. f must already be
// normalized.
func buildQuery(f model.QueryFilter) builtQuery {
	where, args := filterPredicates(f).where()

	n := len(args)
	pageArgs := append(append(make([]any, 0, n+2), args...), f.Limit, f.Offset)

	return builtQuery{
		pageSQL: "SELECT " + logColumns + " FROM logs" + where +
			" ORDER BY created_at DESC, id DESC" +
			" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2),
		pageArgs:  pageArgs,
		countSQL:  "SELECT COUNT(*) FROM logs" + where,
		countArgs: args,
	}
}
