package stovesync

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/gray-hearth/internal/item"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/world"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakeBroker struct {
	msgs []published
	err  error
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, published{topic, payload, qos, retained})
	return nil
}

func testLevel(t *testing.T) stove.Level {
	t.Helper()
	catalog := recipe.NewCatalog()
	if err := catalog.Replace(recipe.DefaultRecipes()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	return stove.Bind(world.New(7), catalog)
}

// cookingStove returns a lit stove holding a cod in slot 0 with some progress.
func cookingStove(t *testing.T) *stove.Stove {
	t.Helper()
	s := stove.New("stv-0000abcd", world.BlockPos{X: 3, Y: 64, Z: -2}, world.FacingEast)
	s.Attach(testLevel(t))
	cod := item.NewStack("cod", 1)
	if !s.AddItem(&cod) {
		t.Fatal("AddItem(cod) = false")
	}
	s.SetLit(true)
	for i := 0; i < 10; i++ {
		s.Advance()
	}
	return s
}

func TestPayload_EncodeDecode(t *testing.T) {
	s := cookingStove(t)

	p, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data, err := p.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	for _, key := range []string{"id", "x", "y", "z", "facing", "lit", "tag"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	st, err := decoded.Stored()
	if err != nil {
		t.Fatalf("Stored() error = %v", err)
	}
	if st.ID != s.ID() || st.Pos != s.Pos() || st.Facing != world.FacingEast || !st.Lit {
		t.Errorf("Stored() = %+v", st)
	}
	for _, key := range []string{stove.KeyInventory, stove.KeyCookingTimes, stove.KeyCookingTotalTimes} {
		if _, ok := st.Record[key]; !ok {
			t.Errorf("tag missing %s", key)
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing id", `{"x":1}`},
		{"wrong type", `{"id":"stv-1","lit":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Decode() error = %v, want ErrInvalidPayload", err)
			}
		})
	}

	if _, err := (Payload{ID: "stv-1", Facing: "up"}).Stored(); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Stored() with bad facing error = %v, want ErrInvalidPayload", err)
	}
}

func TestPublisher(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewPublisher(broker, 1)

	p, err := Encode(cookingStove(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := pub.Sync(p); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := pub.Event(stove.CookEvent{Kind: stove.EventBurnt, StoveID: p.ID, Input: item.NewStack("cod", 1)}); err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if err := pub.Remove(p.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	want := []struct {
		topic    string
		retained bool
		empty    bool
	}{
		{"hearth/core/stove/stv-0000abcd/sync", true, false},
		{"hearth/core/event/burnt", false, false},
		{"hearth/core/stove/stv-0000abcd/sync", true, true},
	}
	if len(broker.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(broker.msgs), len(want))
	}
	for i, w := range want {
		got := broker.msgs[i]
		if got.topic != w.topic || got.retained != w.retained || (len(got.payload) == 0) != w.empty || got.qos != 1 {
			t.Errorf("message %d = {%s retained:%v len:%d qos:%d}, want %+v", i, got.topic, got.retained, len(got.payload), got.qos, w)
		}
	}

	broker.err = errors.New("broker down")
	if err := pub.Sync(p); !errors.Is(err, broker.err) {
		t.Errorf("Sync() error = %v, want wrapped broker error", err)
	}
}

func TestReplica_ApplyAndForget(t *testing.T) {
	replicas := stove.NewRegistry(nil, testLevel(t))

	var queued []func()
	replica := NewReplica(replicas, func(fn func()) bool {
		queued = append(queued, fn)
		return true
	})

	p, err := Encode(cookingStove(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data, _ := p.Bytes()
	topic := "hearth/core/stove/" + p.ID + "/sync"

	if err := replica.HandleSync(topic, data); err != nil {
		t.Fatalf("HandleSync() error = %v", err)
	}
	if replicas.Count() != 0 {
		t.Fatal("update applied before the executor ran it")
	}
	queued[0]()

	s, err := replicas.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !s.Lit() || s.Occupied() != 1 {
		t.Errorf("replica = %+v", s.Snapshot())
	}
	view, _ := s.Slot(0)
	if view.CookTime != 10 || view.CookTimeTotal != 600 {
		t.Errorf("slot 0 = (%d,%d), want (10,600)", view.CookTime, view.CookTimeTotal)
	}

	if err := replica.HandleSync(topic, nil); err != nil {
		t.Fatalf("HandleSync(empty) error = %v", err)
	}
	queued[1]()
	if replicas.Count() != 0 {
		t.Error("replica not forgotten after empty payload")
	}
}

func TestReplica_Rejects(t *testing.T) {
	replicas := stove.NewRegistry(nil, testLevel(t))
	replica := NewReplica(replicas, nil)

	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"foreign topic", "hearth/system/status", `{}`, ErrUnexpectedTopic},
		{"bad json", "hearth/core/stove/stv-1/sync", `nope`, ErrInvalidPayload},
		{"id mismatch", "hearth/core/stove/stv-1/sync", `{"id":"stv-2","facing":"north"}`, ErrInvalidPayload},
		{"bad facing", "hearth/core/stove/stv-1/sync", `{"id":"stv-1","facing":"down"}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := replica.HandleSync(tt.topic, []byte(tt.payload)); !errors.Is(err, tt.want) {
				t.Errorf("HandleSync() error = %v, want %v", err, tt.want)
			}
		})
	}
	if replicas.Count() != 0 {
		t.Errorf("Count() = %d after rejected messages", replicas.Count())
	}

	full := NewReplica(replicas, func(func()) bool { return false })
	if err := full.HandleSync("hearth/core/stove/stv-1/sync", nil); !errors.Is(err, ErrQueueFull) {
		t.Errorf("HandleSync() with full queue error = %v, want ErrQueueFull", err)
	}
}
