package sqldump

import "strings"

// Block is every INSERT statement for one logical table, merged. Columns is
// nil when the dump omitted an explicit column list (callers then fall back
// to positional access, which is best-effort). Tuples preserves dump order
// across statements.
type Block struct {
	Table   string
	Columns []string
	Tuples  []Tuple

	// Statements counts how many INSERT statements contributed to the block.
	Statements int
}

// Tuple is one dump row: the raw inner tuple text plus its decoded values.
// Raw is kept for diagnostics (snippets, fingerprints).
type Tuple struct {
	Raw    string
	Values []Value
}

// stmt is one scanned INSERT statement, pre-filtering.
type stmt struct {
	rawName string   // table name as written, quote characters stripped
	table   string   // normalized: last dotted segment, lowercased
	columns []string // normalized column list; nil when absent
	body    string   // raw VALUES body
}

// Extract returns the merged block of all INSERT statements targeting the
// given table name, matched case-insensitively. The boolean reports whether
// at least one statement matched.
func Extract(dump, table string) (Block, bool) {
	blk := Block{Table: table}
	want := strings.ToLower(table)

	scanStatements(dump, func(st stmt) {
		if st.table != want {
			return
		}
		blk.Statements++
		if blk.Columns == nil && len(st.columns) > 0 {
			// First declared column list wins; dumps repeat the same list
			// per statement when they declare one at all.
			blk.Columns = st.columns
		}
		for _, raw := range SplitTuples(st.body) {
			blk.Tuples = append(blk.Tuples, Tuple{Raw: raw, Values: DecodeTuple(raw)})
		}
	})

	return blk, blk.Statements > 0
}

// ExtractFirst tries each table-name variant in order and returns the block
// for the first variant with at least one matching statement. This supports
// fallback chains like payments, then subscriptions, then memberships.
func ExtractFirst(dump string, variants ...string) (Block, bool) {
	for _, v := range variants {
		if blk, ok := Extract(dump, v); ok {
			return blk, true
		}
	}
	return Block{}, false
}

// Tables lists every distinct table name seen in an INSERT statement, in
// first-seen order and as written in the dump (quote characters stripped).
// Purely operator-facing; consumption decisions never depend on it.
func Tables(dump string) []string {
	var out []string
	seen := make(map[string]struct{})
	scanStatements(dump, func(st stmt) {
		if _, ok := seen[st.table]; ok {
			return
		}
		seen[st.table] = struct{}{}
		out = append(out, st.rawName)
	})
	return out
}

// scanStatements walks the dump text and calls visit for every INSERT ...
// VALUES statement it can recognize. Statements it cannot make sense of are
// skipped without error; this is a tolerant scan over machine-generated text,
// not a grammar.
func scanStatements(dump string, visit func(st stmt)) {
	lower := strings.ToLower(dump)
	i := 0
	for i < len(lower) {
		j := strings.Index(lower[i:], "insert")
		if j < 0 {
			return
		}
		pos := i + j
		k := skipSpace(lower, pos+len("insert"))

		// MySQL exporters sometimes emit INSERT IGNORE.
		if strings.HasPrefix(lower[k:], "ignore") {
			k = skipSpace(lower, k+len("ignore"))
		}
		if !strings.HasPrefix(lower[k:], "into") {
			i = pos + len("insert")
			continue
		}
		k = skipSpace(lower, k+len("into"))

		rawName, norm, k2 := scanIdent(dump, k)
		if norm == "" {
			i = k
			continue
		}
		k = skipSpace(lower, k2)

		var cols []string
		if k < len(dump) && dump[k] == '(' {
			end := strings.IndexByte(dump[k:], ')')
			if end < 0 {
				i = k + 1
				continue
			}
			cols = splitColumns(dump[k+1 : k+end])
			k = skipSpace(lower, k+end+1)
		}

		switch {
		case strings.HasPrefix(lower[k:], "values"):
			k += len("values")
		case strings.HasPrefix(lower[k:], "value"):
			k += len("value")
		default:
			// INSERT ... SELECT and friends; skip past this statement.
			_, next := scanBody(dump, k)
			i = next
			continue
		}

		body, next := scanBody(dump, k)
		visit(stmt{rawName: rawName, table: norm, columns: cols, body: body})
		i = next
	}
}

// scanBody captures statement text up to the terminating semicolon (at top
// level, outside quotes) or end of input.
func scanBody(s string, i int) (body string, next int) {
	start := i
	inSingle, inDouble, escaped := false, false, false
	for ; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && (inSingle || inDouble):
			escaped = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == ';' && !inSingle && !inDouble:
			return s[start:i], i + 1
		}
	}
	return s[start:], len(s)
}

// scanIdent reads a possibly quoted, possibly schema-qualified identifier
// starting at i. It returns the name as written (quote characters stripped),
// the normalized form used for matching (last dotted segment, lowercased),
// and the index just past the identifier.
func scanIdent(s string, i int) (rawName, norm string, next int) {
	var segs []string
	for {
		seg, n := scanIdentSegment(s, i)
		if seg == "" {
			break
		}
		segs = append(segs, seg)
		i = n
		if i < len(s) && s[i] == '.' {
			i++
			continue
		}
		break
	}
	if len(segs) == 0 {
		return "", "", i
	}
	return strings.Join(segs, "."), strings.ToLower(segs[len(segs)-1]), i
}

func scanIdentSegment(s string, i int) (seg string, next int) {
	if i >= len(s) {
		return "", i
	}
	var closer byte
	switch s[i] {
	case '`':
		closer = '`'
	case '"':
		closer = '"'
	case '[':
		closer = ']'
	}
	if closer != 0 {
		end := strings.IndexByte(s[i+1:], closer)
		if end < 0 {
			return "", i
		}
		return s[i+1 : i+1+end], i + 1 + end + 1
	}
	j := i
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	return s[i:j], j
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '$'
}

// splitColumns normalizes a declared column list: lowercased, surrounding
// quote characters stripped.
func splitColumns(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		c := strings.TrimSpace(p)
		c = strings.Trim(c, "`\"'[]")
		if c == "" {
			continue
		}
		out = append(out, strings.ToLower(c))
	}
	return out
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
