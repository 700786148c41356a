package history

import (
	"bytes"
	"encoding/json"
	"reflect"
	"time"
)

// Actions
const (
	ActionAdmissionAdded = "admission_added"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionFeePayment     = "fee_payment"
)

var Actions = []string{ActionAdmissionAdded, ActionUpdate, ActionDelete, ActionFeePayment}

func IsValidAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Entry is an immutable audit record of a mutation.
type Entry struct {
	ID        int       `json:"id"`
	Action    string    `json:"action"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"` // UTC
	Before    Snapshot  `json:"before"`
	After     Snapshot  `json:"after"`
}

// Snapshot is the JSON document of a record at some point in time.
// A nil Snapshot encodes as `null`.
type Snapshot []byte

// NewSnapshot encodes v; nil values (and nil pointers) give a nil Snapshot.
func NewSnapshot(v interface{}) (Snapshot, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}
	if s, ok := v.(Snapshot); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s Snapshot) IsNull() bool {
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.IsNull() {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	*s = append((*s)[0:0], b...)
	return nil
}

// Decode unmarshals the snapshot into v. A null snapshot leaves v untouched.
func (s Snapshot) Decode(v interface{}) error {
	if s.IsNull() {
		return nil
	}
	return json.Unmarshal(s, v)
}

// Fields decodes the snapshot as a JSON object.
func (s Snapshot) Fields() (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if err := s.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
