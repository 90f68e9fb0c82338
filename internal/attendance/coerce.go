package attendance

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// maxSafeID keeps ids inside the range a float64 represents exactly.
const maxSafeID = 1<<53 - 1

var errNotAnID = errors.New("value is not a numeric id")

// RawEntry is one loosely typed element of a bulk attendance request. Any
// JSON value decodes; elements that are not objects end up empty and are
// dropped during coercion.
type RawEntry struct {
	StudentID json.RawMessage `json:"studentId"`
	Status    json.RawMessage `json:"status"`
}

func (e *RawEntry) UnmarshalJSON(data []byte) error {
	*e = RawEntry{}
	if len(bytes.TrimSpace(data)) == 0 || bytes.TrimSpace(data)[0] != '{' {
		return nil
	}
	type plain RawEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = RawEntry(p)
	return nil
}

// coerce turns the raw entry into a student id and a trimmed status. ok is
// false when the id is not an integral finite number or the status is blank.
func (e RawEntry) coerce() (studentID int64, status string, ok bool) {
	id, err := parseID(e.StudentID)
	if err != nil {
		return 0, "", false
	}
	status = coerceStatus(e.Status)
	if status == "" {
		return 0, "", false
	}
	return id, status, true
}

// parseID accepts a JSON number or a string holding one.
func parseID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errNotAnID
	}

	var text string
	switch c := raw[0]; {
	case c == '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, errNotAnID
		}
		text = strings.TrimSpace(text)
	case c == '-' || (c >= '0' && c <= '9'):
		text = string(raw)
	default:
		return 0, errNotAnID
	}
	if text == "" {
		return 0, errNotAnID
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxSafeID {
		return 0, errNotAnID
	}
	return int64(f), nil
}

// coerceStatus stringifies scalars, numbers in shortest decimal form; null,
// objects and arrays become "".
func coerceStatus(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[', 'n':
		return ""
	case 't', 'f':
		return string(raw)
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// StudentIDs decodes either a single id or a list of ids, each given as a
// number or a numeric string.
type StudentIDs []int64

func (s *StudentIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		ids := make(StudentIDs, 0, len(items))
		for _, item := range items {
			id, err := parseID(item)
			if err != nil {
				return errors.New("studentIds must contain numeric ids")
			}
			ids = append(ids, id)
		}
		*s = ids
		return nil
	}

	id, err := parseID(data)
	if err != nil {
		return errors.New("studentId must be a numeric id or a list of them")
	}
	*s = StudentIDs{id}
	return nil
}
