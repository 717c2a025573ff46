package columnar

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

// JoinKind selects which unmatched rows a join keeps
type JoinKind int

const (
	// InnerJoin keeps matched pairs only
	InnerJoin JoinKind = iota
	// LeftJoin also keeps unmatched left rows
	LeftJoin
	// RightJoin also keeps unmatched right rows
	RightJoin
	// OuterJoin keeps unmatched rows of both sides
	OuterJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case RightJoin:
		return "right"
	case OuterJoin:
		return "outer"
	}
	return "unknown"
}

// ParseJoinKind parses inner, left, right or outer
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return InnerJoin, nil
	case "left":
		return LeftJoin, nil
	case "right":
		return RightJoin, nil
	case "outer", "full":
		return OuterJoin, nil
	}
	return 0, errors.Newf(errors.CodeInvalid, "unknown join kind %q", s)
}

// JoinStrategy selects the matching algorithm
type JoinStrategy int

const (
	// AutoStrategy picks hash or nested from the table sizes
	AutoStrategy JoinStrategy = iota
	// HashStrategy probes an open-addressing index over the right table
	HashStrategy
	// SortedStrategy binary-searches a sorted index over the right table
	SortedStrategy
	// NestedStrategy compares every pair of rows
	NestedStrategy
)

func (s JoinStrategy) String() string {
	switch s {
	case AutoStrategy:
		return "auto"
	case HashStrategy:
		return "hash"
	case SortedStrategy:
		return "sorted"
	case NestedStrategy:
		return "nested"
	}
	return "unknown"
}

// ParseJoinStrategy parses auto, hash, sorted or nested
func ParseJoinStrategy(s string) (JoinStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return AutoStrategy, nil
	case "hash":
		return HashStrategy, nil
	case "sorted", "sort", "merge":
		return SortedStrategy, nil
	case "nested", "nested-loop", "nested_loop", "loop":
		return NestedStrategy, nil
	}
	return 0, errors.Newf(errors.CodeInvalid, "unknown join strategy %q", s)
}

// DefaultSuffixes resolve column name collisions between join sides
var DefaultSuffixes = [2]string{"", "_right"}

// JoinOptions configures Join
type JoinOptions struct {
	// On names key columns present on both sides; used when LeftOn and RightOn are empty
	On       []string
	LeftOn   []string
	RightOn  []string
	How      JoinKind
	Strategy JoinStrategy
	// Suffixes for colliding left and right names; the zero value means DefaultSuffixes
	Suffixes [2]string
}

// autoHashThreshold drives AutoStrategy: hash when left > threshold/right
const autoHashThreshold = 1024

// Join combines two tables on equal, non-null key columns. Output rows
// follow the left table; for right and outer joins unmatched right rows
// are appended in right order.
func Join(left, right *Table, opts JoinOptions) (*Table, error) {
	leftOn, rightOn := opts.LeftOn, opts.RightOn
	if len(leftOn) == 0 && len(rightOn) == 0 {
		leftOn, rightOn = opts.On, opts.On
	}
	lk, rk, err := joinKeys(left, right, leftOn, rightOn)
	if err != nil {
		return nil, err
	}

	strategy := resolveStrategy(opts.Strategy, left.rows, right.rows)
	logger.Debug("join",
		zap.String("how", opts.How.String()),
		zap.String("strategy", strategy.String()),
		zap.Int("left_rows", left.rows),
		zap.Int("right_rows", right.rows))

	var matcher func(r int, fn func(int))
	switch strategy {
	case HashStrategy:
		matcher = hashMatcher(lk, rk, right.rows)
	case SortedStrategy:
		matcher = sortedMatcher(lk, rk, right.rows)
	default:
		matcher = nestedMatcher(lk, rk, right.rows)
	}

	var li, ri []int
	rightMatched := make([]bool, right.rows)
	keepLeft := opts.How == LeftJoin || opts.How == OuterJoin
	keepRight := opts.How == RightJoin || opts.How == OuterJoin
	for l := 0; l < left.rows; l++ {
		matched := false
		if !lk.hasNull(l) {
			matcher(l, func(r int) {
				li = append(li, l)
				ri = append(ri, r)
				rightMatched[r] = true
				matched = true
			})
		}
		if !matched && keepLeft {
			li = append(li, l)
			ri = append(ri, -1)
		}
	}
	if keepRight {
		for r, ok := range rightMatched {
			if !ok {
				li = append(li, -1)
				ri = append(ri, r)
			}
		}
	}

	suffixes := opts.Suffixes
	if suffixes == [2]string{} {
		suffixes = DefaultSuffixes
	}
	return assembleJoin(left, right, leftOn, rightOn, li, ri, suffixes)
}

func resolveStrategy(s JoinStrategy, leftRows, rightRows int) JoinStrategy {
	if s != AutoStrategy {
		return s
	}
	if leftRows > 0 && rightRows > 0 && leftRows > autoHashThreshold/rightRows {
		return HashStrategy
	}
	return NestedStrategy
}

func joinKeys(left, right *Table, leftOn, rightOn []string) (rowKey, rowKey, error) {
	if len(leftOn) == 0 {
		return nil, nil, errors.New(errors.CodeInvalid, "join requires at least one key column")
	}
	if len(leftOn) != len(rightOn) {
		return nil, nil, errors.Newf(errors.CodeInvalid, "join has %d left keys and %d right keys", len(leftOn), len(rightOn))
	}
	lk := make(rowKey, len(leftOn))
	rk := make(rowKey, len(rightOn))
	for k := range leftOn {
		lc, err := left.Column(leftOn[k])
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInvalid, "left join key")
		}
		rc, err := right.Column(rightOn[k])
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInvalid, "right join key")
		}
		if lc.dtype != rc.dtype {
			return nil, nil, errors.Newf(errors.CodeInvalid, "join key %q is %s but %q is %s", lc.name, lc.dtype, rc.name, rc.dtype).WithColumnName(lc.name)
		}
		if lc.dtype == Float64 {
			return nil, nil, errors.Newf(errors.CodeInvalid, "join key %q must be int64 or string", lc.name).WithColumnName(lc.name)
		}
		lk[k], rk[k] = lc, rc
	}
	return lk, rk, nil
}

func hashMatcher(lk, rk rowKey, rightRows int) func(int, func(int)) {
	idx := newHashIndex(rk, rightRows)
	for r := 0; r < rightRows; r++ {
		if !rk.hasNull(r) {
			idx.insert(r)
		}
	}
	return func(l int, fn func(int)) {
		idx.probe(lk, l, fn)
	}
}

// compareKeys orders non-null key rows across two tables
func compareKeys(a rowKey, i int, b rowKey, j int) int {
	for k := range a {
		if d := compareValues(a[k], i, b[k], j); d != 0 {
			return d
		}
	}
	return 0
}

func sortedMatcher(lk, rk rowKey, rightRows int) func(int, func(int)) {
	rows := make([]int, 0, rightRows)
	for r := 0; r < rightRows; r++ {
		if !rk.hasNull(r) {
			rows = append(rows, r)
		}
	}
	rows = mergeSort(rows, func(a, b int) int { return compareKeys(rk, a, rk, b) })
	return func(l int, fn func(int)) {
		lo, hi := 0, len(rows)
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			if compareKeys(rk, rows[mid], lk, l) < 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		for i := lo; i < len(rows) && compareKeys(rk, rows[i], lk, l) == 0; i++ {
			fn(rows[i])
		}
	}
}

func nestedMatcher(lk, rk rowKey, rightRows int) func(int, func(int)) {
	return func(l int, fn func(int)) {
		for r := 0; r < rightRows; r++ {
			if !rk.hasNull(r) && keysEqual(lk, l, rk, r) {
				fn(r)
			}
		}
	}
}

// assembleJoin gathers the output columns for the matched row pairs
func assembleJoin(left, right *Table, leftOn, rightOn []string, li, ri []int, suffixes [2]string) (*Table, error) {
	if err := checkCapacity(len(li), "join"); err != nil {
		return nil, err
	}
	// key pairs sharing a name are emitted once, in the left position
	shared := make(map[string]string)
	for k := range leftOn {
		if leftOn[k] == rightOn[k] {
			shared[leftOn[k]] = rightOn[k]
		}
	}

	var rightCols []*Column
	rightNames := make(map[string]bool)
	for _, c := range right.columns {
		if _, dup := shared[c.name]; dup {
			continue
		}
		rightCols = append(rightCols, c)
		rightNames[c.name] = true
	}
	leftNames := make(map[string]bool, len(left.columns))
	for _, c := range left.columns {
		leftNames[c.name] = true
	}

	cols := make([]*Column, 0, len(left.columns)+len(rightCols))
	used := make(map[string]bool)
	for _, c := range left.columns {
		name := c.name
		if rightNames[name] {
			name += suffixes[0]
		}
		out := c.take(li)
		if _, ok := shared[c.name]; ok {
			rc, _ := right.Column(c.name)
			for i, l := range li {
				if l < 0 && ri[i] >= 0 {
					replaceCell(out, i, rc, ri[i])
				}
			}
		}
		out.name = uniqueName(name, used)
		cols = append(cols, out)
	}
	for _, c := range rightCols {
		name := c.name
		if leftNames[name] {
			name += suffixes[1]
		}
		out := c.take(ri)
		out.name = uniqueName(name, used)
		cols = append(cols, out)
	}
	out, err := NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "join output")
	}
	return out, nil
}

// replaceCell overwrites row i of dst with row j of src
func replaceCell(dst *Column, i int, src *Column, j int) {
	dst.nulls[i] = src.nulls[j]
	switch dst.dtype {
	case Int64:
		dst.ints[i] = src.ints[j]
	case Float64:
		dst.floats[i] = src.floats[j]
	case String:
		dst.strs[i] = src.strs[j]
	}
}

// uniqueName returns name, or name_N for the first free N, and records it
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 1; used[candidate]; n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}
