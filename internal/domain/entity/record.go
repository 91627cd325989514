// Package entity defines the generic records shown on the admin screens and
// the schemas that describe each screen.
package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one domain object (product, order, ...) as it travels over the API.
type Record map[string]any

// ID returns the record's id rendered as a string, or "" when absent.
func (r Record) ID() string {
	return r.String("id")
}

// String renders field as text. Whole JSON numbers print without a fraction.
func (r Record) String(field string) string {
	return FormatValue(r[field])
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatValue renders a decoded JSON value as display text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		// Nested references such as {"id":1,"name":"Tools"} display their name.
		if name, ok := x["name"]; ok {
			return FormatValue(name)
		}
		return FormatValue(x["id"])
	default:
		return fmt.Sprintf("%v", x)
	}
}

// WorkingSet is the ordered collection a list controller currently holds.
// It is never authoritative; the server always wins on the next load.
type WorkingSet []Record

// IDs returns the ids of all records in order.
func (ws WorkingSet) IDs() []string {
	ids := make([]string, 0, len(ws))
	for _, r := range ws {
		ids = append(ids, r.ID())
	}
	return ids
}

// Contains reports whether a record with id is present.
func (ws WorkingSet) Contains(id string) bool {
	return ws.index(id) >= 0
}

// Without returns a copy of ws with the record identified by id removed.
func (ws WorkingSet) Without(id string) WorkingSet {
	out := make(WorkingSet, 0, len(ws))
	for _, r := range ws {
		if r.ID() != id {
			out = append(out, r)
		}
	}
	return out
}

// With returns a copy of ws with rec appended, or replaced in place when a
// record with the same id already exists.
func (ws WorkingSet) With(rec Record) WorkingSet {
	out := make(WorkingSet, len(ws), len(ws)+1)
	copy(out, ws)
	if i := out.index(rec.ID()); i >= 0 && rec.ID() != "" {
		out[i] = rec
		return out
	}
	return append(out, rec)
}

func (ws WorkingSet) index(id string) int {
	for i, r := range ws {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// DecodeCollection accepts either a bare JSON array or the backend's
// envelope ({"success":true,"data":[...]}) and returns the records.
func DecodeCollection(body []byte) (WorkingSet, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return WorkingSet{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	if strings.HasPrefix(trimmed, "[") {
		var rows []Record
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decoding collection: %w", err)
		}
		return WorkingSet(rows), nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding collection envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return WorkingSet{}, nil
	}
	return DecodeCollection(env.Data)
}

// DecodeRecord accepts a bare object or an envelope with "data".
func DecodeRecord(body []byte) (Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if data, ok := rec["data"].(map[string]any); ok {
		if _, hasID := rec["id"]; !hasID {
			return Record(data), nil
		}
	}
	return rec, nil
}
