package item

import (
	"errors"
	"strings"
	"testing"
)

func TestStack_Split(t *testing.T) {
	tests := []struct {
		name     string
		stack    Stack
		n        int
		wantOut  Stack
		wantLeft Stack
	}{
		{
			name:     "split one from many",
			stack:    NewStack("raw_cod", 5),
			n:        1,
			wantOut:  NewStack("raw_cod", 1),
			wantLeft: NewStack("raw_cod", 4),
		},
		{
			name:     "split last unit empties source",
			stack:    NewStack("raw_cod", 1),
			n:        1,
			wantOut:  NewStack("raw_cod", 1),
			wantLeft: Empty,
		},
		{
			name:     "split more than available",
			stack:    NewStack("potato", 2),
			n:        10,
			wantOut:  NewStack("potato", 2),
			wantLeft: Empty,
		},
		{
			name:     "split from empty",
			stack:    Empty,
			n:        1,
			wantOut:  Empty,
			wantLeft: Empty,
		},
		{
			name:     "split zero",
			stack:    NewStack("potato", 2),
			n:        0,
			wantOut:  Empty,
			wantLeft: NewStack("potato", 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.stack
			got := s.Split(tt.n)
			if got != tt.wantOut {
				t.Errorf("Split() = %+v, want %+v", got, tt.wantOut)
			}
			if s != tt.wantLeft {
				t.Errorf("remaining = %+v, want %+v", s, tt.wantLeft)
			}
		})
	}
}

func TestHandler_SetRespectsSlotLimit(t *testing.T) {
	h := NewHandler(6, 1)

	h.Set(0, NewStack("raw_cod", 3))
	if got := h.Get(0).Count; got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}

	h.Set(99, NewStack("raw_cod", 1))
	if got := h.Get(99); !got.IsEmpty() {
		t.Errorf("Get(99) = %+v, want empty", got)
	}
}

func TestHandler_Clear(t *testing.T) {
	h := NewHandler(3, 1)
	h.Set(0, NewStack("a", 1))
	h.Set(2, NewStack("b", 1))

	removed := h.Clear()
	if len(removed) != 2 {
		t.Fatalf("Clear() removed %d stacks, want 2", len(removed))
	}
	if removed[0].Item != "a" || removed[1].Item != "b" {
		t.Errorf("Clear() order = %+v", removed)
	}
	if !h.IsEmpty() {
		t.Error("IsEmpty() = false after Clear()")
	}
}

func TestHandler_SerializeRoundTrip(t *testing.T) {
	h := NewHandler(6, 1)
	h.Set(1, NewStack("raw_cod", 1))
	h.Set(5, NewStack("potato", 1))

	data, err := h.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	got := NewHandler(6, 1)
	got.Set(0, NewStack("stale", 1))
	if err := got.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}

	for i := 0; i < 6; i++ {
		if got.Get(i) != h.Get(i) {
			t.Errorf("slot %d = %+v, want %+v", i, got.Get(i), h.Get(i))
		}
	}
}

func TestHandler_DeserializeSkipsOutOfRange(t *testing.T) {
	h := NewHandler(2, 1)
	data := []byte(`{"Size":8,"Items":[{"Slot":1,"id":"egg","Count":1},{"Slot":7,"id":"beef","Count":1}]}`)

	if err := h.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if h.Get(1).Item != "egg" {
		t.Errorf("slot 1 = %+v, want egg", h.Get(1))
	}
}

func TestHandler_DeserializeMalformed(t *testing.T) {
	h := NewHandler(2, 1)
	err := h.Deserialize([]byte(`not json`))
	if !errors.Is(err, ErrMalformedContainer) {
		t.Errorf("Deserialize() error = %v, want ErrMalformedContainer", err)
	}
}

func TestHandler_DeserializeKeepsOversizedCounts(t *testing.T) {
	h := NewHandler(6, 1)
	data := []byte(`{"Size":6,"Items":[{"Slot":0,"id":"cod","Count":5},{"Slot":2,"id":"egg","Count":0}]}`)

	if err := h.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if got := h.Get(0); got != NewStack("cod", 5) {
		t.Errorf("slot 0 = %+v, want 5 cod", got)
	}
	if got := h.Get(2); !got.IsEmpty() {
		t.Errorf("slot 2 = %+v, want empty", got)
	}

	again, err := h.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !strings.Contains(string(again), `"Count":5`) {
		t.Errorf("Serialize() = %s, want the count kept", again)
	}
}
