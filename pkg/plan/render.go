package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// Template tokens:
//
//	{table:name}  table mapped to resource name
//	{where}       WHERE (<search>) or nothing
//	{and}         AND (<search>) or nothing
//	{page}        LIMIT n OFFSET m for paged plans, or nothing
var tokenPattern = regexp.MustCompile(`\{([a-z]+)(?::([A-Za-z0-9_]+))?\}`)

// LikeEscape is the LIKE escape character used for search patterns. MySQL,
// PostgreSQL and SQLite all read '!' literally inside a string literal.
const LikeEscape = '!'

var likeEscaper = strings.NewReplacer(
	string(LikeEscape), string(LikeEscape)+string(LikeEscape),
	"%", string(LikeEscape)+"%",
	"_", string(LikeEscape)+"_",
)

// EscapeLike makes s match itself literally in a LIKE pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Renderer expands plan templates into executable SQL.
type Renderer struct {
	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder func(n int) string
	// Tables maps resource names to table names. Missing names fall back to
	// the default resources, then to the name itself.
	Tables map[string]string
}

// Render expands p with filters using placeholder and the default tables.
func Render(p domain.QueryPlan, filters domain.Filters, placeholder func(n int) string) (string, []interface{}, error) {
	return Renderer{Placeholder: placeholder}.Render(p, filters)
}

// Render expands the template tokens of p and returns the query and its args.
func (r Renderer) Render(p domain.QueryPlan, filters domain.Filters) (string, []interface{}, error) {
	placeholder := r.Placeholder
	if placeholder == nil {
		placeholder = func(int) string { return "?" }
	}

	var (
		args     []interface{}
		firstErr error
	)
	search := strings.TrimSpace(filters.Search)

	searchClause := func() string {
		if search == "" || len(p.SearchColumns) == 0 {
			return ""
		}
		pattern := "%" + EscapeLike(search) + "%"
		parts := make([]string, len(p.SearchColumns))
		for i, col := range p.SearchColumns {
			args = append(args, pattern)
			parts[i] = fmt.Sprintf("%s LIKE %s ESCAPE '%c'", col, placeholder(len(args)), LikeEscape)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}

	query := tokenPattern.ReplaceAllStringFunc(p.Template, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		switch m[1] {
		case "table":
			if m[2] == "" {
				firstErr = orErr(firstErr, fmt.Errorf("plan %s: table token without resource", p.ID))
				return tok
			}
			return r.table(m[2])
		case "where":
			if c := searchClause(); c != "" {
				return "WHERE " + c
			}
			return ""
		case "and":
			if c := searchClause(); c != "" {
				return "AND " + c
			}
			return ""
		case "page":
			if !p.Paged || filters.PageSize <= 0 {
				return ""
			}
			return fmt.Sprintf("LIMIT %d OFFSET %d", filters.PageSize, filters.Offset())
		default:
			firstErr = orErr(firstErr, fmt.Errorf("plan %s: unknown template token %s", p.ID, tok))
			return tok
		}
	})
	if firstErr != nil {
		return "", nil, firstErr
	}

	return strings.TrimSpace(query), args, nil
}

func (r Renderer) table(resource string) string {
	if t, ok := r.Tables[resource]; ok && t != "" {
		return t
	}
	for _, res := range DefaultResources() {
		if res.Name == resource {
			return res.Table
		}
	}
	return resource
}

func orErr(existing, err error) error {
	if existing != nil {
		return existing
	}
	return err
}
