package services

import (
	"strings"

	"golang.org/x/text/cases"
)

var keyFolder = cases.Fold()

// foldKey normalizes free-text categories and tags before they are used as
// map keys or in set membership checks.
func foldKey(s string) string {
	return keyFolder.String(strings.TrimSpace(s))
}

func foldSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if folded := foldKey(v); folded != "" {
			set[folded] = true
		}
	}
	return set
}
