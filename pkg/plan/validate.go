package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// ValidateReadOnly renders p with a sample filter and checks that the result
// parses as exactly one SELECT (or set operation of SELECTs) statement.
func ValidateReadOnly(p domain.QueryPlan) error {
	query, _, err := Render(p, domain.Filters{Search: "x", Page: 2, PageSize: 10}, nil)
	if err != nil {
		return err
	}
	return validateSQL(p.ID, query)
}

func validateSQL(id, query string) error {
	stmts, _, err := parser.New().Parse(query, "", "")
	if err != nil {
		return fmt.Errorf("plan %s: parse template: %w", id, err)
	}
	if len(stmts) != 1 {
		return fmt.Errorf("plan %s: expected one statement, got %d", id, len(stmts))
	}

	return checkReadOnly(id, stmts[0])
}

func checkReadOnly(id string, node ast.Node) error {
	switch stmt := node.(type) {
	case *ast.SelectStmt:
		if stmt.SelectIntoOpt != nil {
			return fmt.Errorf("plan %s: SELECT INTO is not read-only", id)
		}
		if stmt.LockInfo != nil && stmt.LockInfo.LockType != ast.SelectLockNone {
			return fmt.Errorf("plan %s: locking read %s is not allowed", id, stmt.LockInfo.LockType)
		}
		return nil
	case *ast.SetOprStmt:
		if stmt.SelectList == nil {
			return nil
		}
		return checkReadOnly(id, stmt.SelectList)
	case *ast.SetOprSelectList:
		for _, sel := range stmt.Selects {
			if err := checkReadOnly(id, sel); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("plan %s: %T is not a read-only query", id, stmt)
	}
}

// portableForbidden matches write, DDL and locking keywords outside identifiers.
var portableForbidden = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke|copy|lock|into|share)\b`)

// ValidatePortable is the grammar-free check used for catalogs that only ever
// run on dialects the MySQL grammar cannot parse, such as PostgreSQL casts.
// The rendered template must be a single statement starting with SELECT or
// WITH and must not contain write, DDL or locking keywords.
func ValidatePortable(p domain.QueryPlan) error {
	query, _, err := Render(p, domain.Filters{Search: "x", Page: 2, PageSize: 10}, nil)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("plan %s: expected one statement", p.ID)
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return fmt.Errorf("plan %s: empty query", p.ID)
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "(SELECT":
	default:
		return fmt.Errorf("plan %s: %s is not a read-only query", p.ID, fields[0])
	}
	if kw := portableForbidden.FindString(trimmed); kw != "" {
		return fmt.Errorf("plan %s: keyword %s is not allowed in a read-only query", p.ID, strings.ToUpper(kw))
	}
	return nil
}

// ValidateCatalog validates every plan of c against the MySQL grammar.
func ValidateCatalog(c *Catalog) error {
	return validateCatalog(c, ValidateReadOnly)
}

// ValidateCatalogPortable validates every plan of c with ValidatePortable.
func ValidateCatalogPortable(c *Catalog) error {
	return validateCatalog(c, ValidatePortable)
}

func validateCatalog(c *Catalog, check func(domain.QueryPlan) error) error {
	for _, p := range c.plans {
		if err := check(p); err != nil {
			return domain.NewErrInvalidConfig("catalogs."+c.action+"."+p.ID, err.Error())
		}
	}
	return nil
}
