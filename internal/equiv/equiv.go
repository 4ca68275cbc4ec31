// Package equiv cross-checks the interpreter against the declarative
// backend: the generated SQL is executed on a real engine and the two
// result sets are compared by shape and content signature.
package equiv

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/interp"
)

// sampleRows caps how many rows feed the content digest.
const sampleRows = 200

// Signature summarizes a result set for comparison: its column list, its
// row count, and a digest over a bounded sample of its content.
type Signature struct {
	Columns   []string `json:"columns"`
	Rows      int      `json:"rows"`
	SampleMD5 string   `json:"sample_md5"`
}

// SignatureOf computes the signature of a row-set. The digest covers the
// first sampleRows rows rendered as CSV lines; the lines are sorted
// before hashing so engines that return rows in a different order still
// agree.
func SignatureOf(rs *interp.RowSet) Signature {
	n := len(rs.Rows)
	if n > sampleRows {
		n = sampleRows
	}
	lines := make([]string, 0, n)
	for _, row := range rs.Rows[:n] {
		fields := make([]string, len(rs.Cols))
		for i, col := range rs.Cols {
			fields[i] = interp.StringOf(row[col])
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	sort.Strings(lines)

	sum := md5.Sum([]byte(strings.Join(lines, "\n")))
	return Signature{
		Columns:   append([]string(nil), rs.Cols...),
		Rows:      len(rs.Rows),
		SampleMD5: hex.EncodeToString(sum[:]),
	}
}

// Compare reports whether two signatures agree, and if not, why.
func Compare(a, b Signature) (bool, string) {
	if len(a.Columns) != len(b.Columns) {
		return false, fmt.Sprintf("column count differs: %d vs %d", len(a.Columns), len(b.Columns))
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false, fmt.Sprintf("column %d differs: %q vs %q", i, a.Columns[i], b.Columns[i])
		}
	}
	if a.Rows != b.Rows {
		return false, fmt.Sprintf("row count differs: %d vs %d", a.Rows, b.Rows)
	}
	if a.SampleMD5 != b.SampleMD5 {
		return false, "content sample digest differs"
	}
	return true, ""
}
