package sql

import (
	"regexp"
	"strings"
)

// Column is one entry of a SELECT list.
type Column struct {
	// Name is the output name: the alias when one is present, otherwise
	// the bare column or function name, lowercase.
	Name string
	// Expr is the original expression text.
	Expr string
}

var (
	asAliasRe  = regexp.MustCompile(`\s+as\s+(\w+)\s*$`)
	funcNameRe = regexp.MustCompile(`^(\w+)\s*\(`)
	nonWordRe  = regexp.MustCompile(`[^\w]`)
)

// SelectColumns extracts the SELECT list of a statement. It returns nil
// for non-SELECT input and for SELECT *, where the output shape cannot
// be known without the table schema. The parser respects parentheses so
// commas inside function calls do not split columns.
func SelectColumns(query string) []Column {
	start, end, ok := SelectListBounds(query)
	if !ok {
		return nil
	}

	list := strings.TrimSpace(query[start:end])
	if strings.HasPrefix(list, "*") {
		return nil
	}

	var out []Column
	for _, raw := range splitColumns(list) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out = append(out, parseColumn(raw))
	}
	return out
}

// SelectListBounds locates the SELECT list within the statement so
// callers can rewrite it in place. ok is false for non-SELECT input.
func SelectListBounds(query string) (start, end int, ok bool) {
	lower := strings.ToLower(query)
	idx := strings.Index(lower, "select")
	if idx == -1 {
		return 0, 0, false
	}
	start = idx + len("select")

	end = len(query)
	for _, kw := range []string{" from ", "\nfrom ", " where ", " group ", " order ", " limit ", ";"} {
		if i := strings.Index(lower[start:], kw); i != -1 && start+i < end {
			end = start + i
		}
	}
	return start, end, true
}

func splitColumns(list string) []string {
	var cols []string
	var cur strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
			cur.WriteRune(ch)
		case ')':
			depth--
			cur.WriteRune(ch)
		case ',':
			if depth == 0 {
				cols = append(cols, cur.String())
				cur.Reset()
			} else {
				cur.WriteRune(ch)
			}
		default:
			cur.WriteRune(ch)
		}
	}
	if cur.Len() > 0 {
		cols = append(cols, cur.String())
	}
	return cols
}

func parseColumn(expr string) Column {
	lower := strings.ToLower(expr)

	if m := asAliasRe.FindStringSubmatch(lower); m != nil {
		return Column{Name: m[1], Expr: expr}
	}

	// Implicit alias: "COUNT(*) total". Only when parens are balanced
	// and the trailing word is not part of a call or a keyword.
	if strings.Count(expr, "(") == strings.Count(expr, ")") {
		parts := strings.Fields(expr)
		if len(parts) > 1 {
			last := parts[len(parts)-1]
			if !strings.ContainsAny(last, "()") && !isKeyword(strings.ToLower(last)) {
				return Column{Name: strings.ToLower(last), Expr: expr}
			}
		}
	}

	return Column{Name: bareName(expr), Expr: expr}
}

func isKeyword(word string) bool {
	switch word {
	case "from", "where", "group", "order", "limit", "and", "or", "as", "distinct":
		return true
	}
	return false
}

func bareName(expr string) string {
	expr = strings.TrimSpace(expr)

	if dot := strings.LastIndex(expr, "."); dot != -1 {
		expr = expr[dot+1:]
	}
	if m := funcNameRe.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}

	name := strings.Trim(expr, "`\"[]")
	return strings.ToLower(nonWordRe.ReplaceAllString(name, ""))
}
