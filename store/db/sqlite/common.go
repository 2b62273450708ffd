package sqlite

import "strings"

// dateLayout is how dates are stored in SQLite TEXT columns. The layout
// sorts lexicographically, so range predicates work on plain strings.
const dateLayout = "2006-01-02"

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(n int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
