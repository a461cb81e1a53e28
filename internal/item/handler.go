package item

import (
	"encoding/json"
	"fmt"
)

// DefaultSlotLimit is the per-slot capacity used when a Handler is created
// without an explicit limit.
const DefaultSlotLimit = 64

// Handler is a fixed-size indexed container of item stacks.
type Handler struct {
	stacks    []Stack
	slotLimit int
}

// NewHandler creates a container with size slots, each holding at most
// slotLimit units. A non-positive slotLimit falls back to DefaultSlotLimit.
func NewHandler(size, slotLimit int) *Handler {
	if size < 0 {
		size = 0
	}
	if slotLimit <= 0 {
		slotLimit = DefaultSlotLimit
	}
	return &Handler{
		stacks:    make([]Stack, size),
		slotLimit: slotLimit,
	}
}

// Slots returns the number of slots.
func (h *Handler) Slots() int {
	return len(h.stacks)
}

// SlotLimit returns the capacity of slot i.
func (h *Handler) SlotLimit(_ int) int {
	return h.slotLimit
}

// Get returns the stack in slot i, or Empty for an out-of-range index.
func (h *Handler) Get(i int) Stack {
	if i < 0 || i >= len(h.stacks) {
		return Empty
	}
	return h.stacks[i]
}

// Set replaces the stack in slot i. Stacks larger than the slot limit are
// truncated to the limit; empty stacks are normalised to Empty.
// Out-of-range indexes are ignored.
func (h *Handler) Set(i int, s Stack) {
	if i < 0 || i >= len(h.stacks) {
		return
	}
	if s.IsEmpty() {
		h.stacks[i] = Empty
		return
	}
	if s.Count > h.slotLimit {
		s.Count = h.slotLimit
	}
	h.stacks[i] = s
}

// IsEmpty reports whether every slot is empty.
func (h *Handler) IsEmpty() bool {
	for _, s := range h.stacks {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// Clear empties every slot and returns what was removed, in slot order.
func (h *Handler) Clear() []Stack {
	var removed []Stack
	for i, s := range h.stacks {
		if !s.IsEmpty() {
			removed = append(removed, s)
		}
		h.stacks[i] = Empty
	}
	return removed
}

// serializedItem is one occupied slot in the serialized form.
type serializedItem struct {
	Slot  int    `json:"Slot"`
	Item  string `json:"id"`
	Count int    `json:"Count"`
}

// serializedHandler is the on-disk/on-wire container form.
type serializedHandler struct {
	Size  int              `json:"Size"`
	Items []serializedItem `json:"Items"`
}

// Serialize encodes the container. Only occupied slots are written.
func (h *Handler) Serialize() (json.RawMessage, error) {
	out := serializedHandler{
		Size:  len(h.stacks),
		Items: make([]serializedItem, 0, len(h.stacks)),
	}
	for i, s := range h.stacks {
		if s.IsEmpty() {
			continue
		}
		out.Items = append(out.Items, serializedItem{Slot: i, Item: s.Item, Count: s.Count})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshalling container: %w", err)
	}
	return data, nil
}

// Deserialize replaces the container contents with the encoded form.
//
// The slot count is fixed at construction and is not changed by the encoded
// Size; entries beyond the container are skipped. Every slot not named in
// the encoded form ends up empty. Stored counts are restored as written,
// even above the slot limit, so a load never destroys items.
func (h *Handler) Deserialize(data []byte) error {
	var in serializedHandler
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}

	for i := range h.stacks {
		h.stacks[i] = Empty
	}
	for _, it := range in.Items {
		if it.Slot < 0 || it.Slot >= len(h.stacks) {
			continue
		}
		s := Stack{Item: it.Item, Count: it.Count}
		if s.IsEmpty() {
			s = Empty
		}
		h.stacks[it.Slot] = s
	}
	return nil
}
