package retrieval

import "strings"

// QuoteLexicalQuery turns a raw query into a single FTS5 phrase so operators
// and quote characters inside it are matched literally. Embedded quotes are
// doubled. The empty string passes through unchanged.
func QuoteLexicalQuery(query string) string {
	if query == "" {
		return query
	}
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
