package history

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// Change is a single top-level field that differs between two snapshots.
type Change struct {
	Field  string      `json:"field"`
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// ChangedFields compares the top-level keys of before and after by structural equality.
// A null snapshot counts as an empty object. The result is sorted by field name.
func ChangedFields(before, after Snapshot) ([]Change, error) {
	bf, err := before.Fields()
	if err != nil {
		return nil, errors.Wrap(err, "decoding before snapshot")
	}
	af, err := after.Fields()
	if err != nil {
		return nil, errors.Wrap(err, "decoding after snapshot")
	}

	keys := make(map[string]struct{}, len(bf)+len(af))
	for k := range bf {
		keys[k] = struct{}{}
	}
	for k := range af {
		keys[k] = struct{}{}
	}

	changes := make([]Change, 0)
	for k := range keys {
		bv, aval := bf[k], af[k]
		if !reflect.DeepEqual(bv, aval) {
			changes = append(changes, Change{Field: k, Before: bv, After: aval})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes, nil
}

// Diff renders a unified text diff of the entry's snapshots.
func Diff(e Entry) (string, error) {
	a, err := indent(e.Before)
	if err != nil {
		return "", errors.Wrap(err, "indenting before snapshot")
	}
	b, err := indent(e.After)
	if err != nil {
		return "", errors.Wrap(err, "indenting after snapshot")
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func indent(s Snapshot) (string, error) {
	if s.IsNull() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, s, "", "  "); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
