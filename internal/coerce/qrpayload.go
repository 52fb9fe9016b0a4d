package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
)

// QRFields are the membership details a QR/reference payload may embed.
// Values are raw strings as found in the JSON; callers normalize dates and
// gender themselves.
type QRFields struct {
	Package string
	Expiry  string
	Gender  string
}

// QRPayload tries to read an embedded JSON payload out of a QR/reference
// column. Legacy rows store these with doubled or single-quote escaping, so
// parsing is attempted as-is first and again with single quotes rewritten.
// Failure is silent: the column may simply not hold JSON.
func QRPayload(raw string) (QRFields, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return QRFields{}, false
	}
	// Doubled single quotes survive some export paths un-decoded.
	s = strings.ReplaceAll(s, "''", "'")

	m, ok := parseJSONObject(s)
	if !ok {
		m, ok = parseJSONObject(strings.ReplaceAll(s, "'", `"`))
	}
	if !ok {
		return QRFields{}, false
	}

	f := QRFields{
		Package: firstString(m, "package", "productId", "productid", "plan"),
		Expiry:  firstString(m, "expiryDate", "expirydate", "expiry"),
		Gender:  firstString(m, "gender"),
	}
	if f == (QRFields{}) {
		return QRFields{}, false
	}
	return f, true
}

func parseJSONObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}

// firstString returns the first present key rendered as a string. Numbers are
// accepted; legacy product ids are sometimes numeric.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t)
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}
