package lead

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ExtraFieldsKey is the vendor key holding the custom attributes of a lead.
const ExtraFieldsKey = "campos_adicionais"

// IDKey is the vendor key holding the lead identifier.
const IDKey = "idlead"

var ErrMissingID = errors.New("lead has no idlead")

// ExtraField is a vendor-defined custom attribute attached to a lead.
type ExtraField struct {
	FieldID       int64  `json:"idcampo"`
	Name          string `json:"nome"`
	Value         string `json:"valor"`
	Type          string `json:"tipo"`
	ReferenceDate string `json:"referencia_data"`
}

// Lead is a CRM lead record as returned by CVDW. Fields keeps every vendor
// key verbatim; ExtraFields is the exploded campos_adicionais list.
type Lead struct {
	ID          int64
	Fields      map[string]any
	ExtraFields []ExtraField
}

// Decode parses one element of the vendor "dados" array.
func Decode(raw []byte) (Lead, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Lead{}, fmt.Errorf("decode lead: %w", err)
	}
	if fields == nil {
		return Lead{}, fmt.Errorf("decode lead: not an object")
	}

	id, ok := toInt(fields[IDKey])
	if !ok {
		return Lead{}, ErrMissingID
	}

	l := Lead{ID: id, Fields: fields}
	if list, ok := fields[ExtraFieldsKey].([]any); ok {
		l.ExtraFields = make([]ExtraField, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			fid, _ := toInt(m["idcampo"])
			l.ExtraFields = append(l.ExtraFields, ExtraField{
				FieldID:       fid,
				Name:          stringify(m["nome"]),
				Value:         stringify(m["valor"]),
				Type:          stringify(m["tipo"]),
				ReferenceDate: stringify(m["referencia_data"]),
			})
		}
	}
	return l, nil
}

// UnmarshalJSON implements json.Unmarshaler via Decode.
func (l *Lead) UnmarshalJSON(b []byte) error {
	decoded, err := Decode(b)
	if err != nil {
		return err
	}
	*l = decoded
	return nil
}

// MarshalJSON emits the vendor fields unchanged.
func (l Lead) MarshalJSON() ([]byte, error) {
	if l.Fields == nil {
		return json.Marshal(map[string]any{IDKey: l.ID})
	}
	return json.Marshal(l.Fields)
}

// Get returns the field as trimmed text, or "" when absent or null.
func (l Lead) Get(key string) string {
	return strings.TrimSpace(stringify(l.Fields[key]))
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if name, ok := t["nome"]; ok {
			return stringify(name)
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
