package stove

import (
	"encoding/json"
	"fmt"
)

// Record keys.
const (
	KeyInventory         = "Inventory"
	KeyCookingTimes      = "CookingTimes"
	KeyCookingTotalTimes = "CookingTotalTimes"
)

// Record is the persisted and synced form of a stove: a keyed map whose
// values are the container's own encoding and the two progress arrays.
type Record map[string]json.RawMessage

// ParseRecord decodes a record from JSON.
func ParseRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// Bytes encodes the record as JSON.
func (r Record) Bytes() ([]byte, error) {
	data, err := json.Marshal(map[string]json.RawMessage(r))
	if err != nil {
		return nil, fmt.Errorf("marshalling stove record: %w", err)
	}
	return data, nil
}

// Save writes the inventory and both progress arrays.
func (s *Stove) Save() (Record, error) {
	inv, err := s.inventory.Serialize()
	if err != nil {
		return nil, fmt.Errorf("saving stove %s: %w", s.id, err)
	}

	times := make([]int, len(s.slots))
	totals := make([]int, len(s.slots))
	for i, sl := range s.slots {
		times[i] = sl.cookTime
		totals[i] = sl.cookTimeTotal
	}

	rec := Record{KeyInventory: inv}
	if rec[KeyCookingTimes], err = json.Marshal(times); err != nil {
		return nil, fmt.Errorf("saving stove %s: %w", s.id, err)
	}
	if rec[KeyCookingTotalTimes], err = json.Marshal(totals); err != nil {
		return nil, fmt.Errorf("saving stove %s: %w", s.id, err)
	}
	return rec, nil
}

// UpdateTag is the payload sent to presentation replicas. It carries the
// same fields as Save so replicas can render progress.
func (s *Stove) UpdateTag() (Record, error) {
	return s.Save()
}

// Load restores state from rec. It never fails: a missing or malformed
// field leaves the corresponding state as it was.
//
// Inventory is read from the nested key when present, otherwise from the
// record itself (the older flat layout). Progress arrays are copied
// element-wise for min(len(array), SlotCount) entries.
//
// The recipe cache is not restored; it is rebuilt on the next lookup.
func (s *Stove) Load(rec Record) {
	if inv, ok := rec[KeyInventory]; ok {
		_ = s.inventory.Deserialize(inv)
	} else if flat, err := json.Marshal(map[string]json.RawMessage(rec)); err == nil {
		_ = s.inventory.Deserialize(flat)
	}

	if times, ok := decodeInts(rec[KeyCookingTimes]); ok {
		for i := 0; i < len(times) && i < len(s.slots); i++ {
			s.slots[i].cookTime = times[i]
		}
	}
	if totals, ok := decodeInts(rec[KeyCookingTotalTimes]); ok {
		for i := 0; i < len(totals) && i < len(s.slots); i++ {
			s.slots[i].cookTimeTotal = totals[i]
		}
	}
}

func decodeInts(raw json.RawMessage) ([]int, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var out []int
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}
