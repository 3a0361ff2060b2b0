package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Flatten returns the leaves of a tree of joined errors, depth first.
// Errors with a single Unwrap are leaves.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	j, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range j.Unwrap() {
		out = append(out, Flatten(e)...)
	}
	return out
}

// Summarize renders err as one message: a single line for a single
// problem, or a count followed by one indented line per problem.
//
//	3 problems:
//	  - [configuration] event node 2 referencedIdentifiers[0].identifierId: unknown identifier node: 7
//	  - [format] identifier 1 SGTIN instanceData: invalid value: ...
//	  - [configuration] event node 4 parentNodeId: dependency cycle through node 4
func Summarize(err error) string {
	leaves := Flatten(err)
	switch len(leaves) {
	case 0:
		return ""
	case 1:
		return line(leaves[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d problems:", len(leaves))
	for _, e := range leaves {
		b.WriteString("\n  - ")
		b.WriteString(line(e))
	}
	return b.String()
}

// ByCategory groups the leaves of err by category.
func ByCategory(err error) map[Category][]error {
	out := make(map[Category][]error)
	for _, e := range Flatten(err) {
		c := Categorize(e)
		out[c] = append(out[c], e)
	}
	return out
}

func line(err error) string {
	var catErr *CategorizedError
	if errors.As(err, &catErr) && catErr.Context != "" {
		return fmt.Sprintf("[%s] %s: %v", catErr.Category, catErr.Context, catErr.Err)
	}
	return fmt.Sprintf("[%s] %v", Categorize(err), err)
}
