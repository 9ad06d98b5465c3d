package resource

import (
	"errors"
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type finalizeCounter struct {
	count int
}

func (f *finalizeCounter) Finalize() {
	f.count++
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Insert(1, "test")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok = table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_ZeroHandleInvalid(t *testing.T) {
	table := NewTable()

	if _, ok := table.Get(0); ok {
		t.Fatal("handle 0 must never resolve")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("handle 0 must never be removable")
	}
	if _, ok := table.Get(42); ok {
		t.Fatal("unissued handle must not resolve")
	}
}

func TestTable_FinalizeExactlyOnce(t *testing.T) {
	table := NewTable()
	f := &finalizeCounter{}

	h, _ := table.Insert(1, f)

	if _, ok := table.Remove(h); !ok {
		t.Fatal("first Remove should succeed")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove of the same handle should report false")
	}

	if f.count != 1 {
		t.Fatalf("Expected Finalize() to be called once, called %d times", f.count)
	}
}

func TestTable_HandleReuse(t *testing.T) {
	table := NewTable()
	first := &finalizeCounter{}

	h1, _ := table.Insert(1, first)
	table.Remove(h1)

	second := &finalizeCounter{}
	h2, _ := table.Insert(1, second)
	if h2 != h1 {
		t.Fatalf("Expected freed handle %d to be recycled, got %d", h1, h2)
	}

	val, ok := table.Get(h2)
	if !ok || val != second {
		t.Fatal("recycled handle should resolve to the new value")
	}
	if first.count != 1 || second.count != 0 {
		t.Fatalf("finalize counts: first=%d second=%d", first.count, second.count)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	unsubscribe := table.Subscribe(obs)

	h, _ := table.Insert(1, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	table.Notify(Event{Type: EventClosed, Handle: h, TypeID: 1})
	if len(obs.events) != 2 || obs.events[1].Type != EventClosed {
		t.Fatal("Expected EventClosed to be delivered")
	}

	table.Remove(h)
	if len(obs.events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(obs.events))
	}
	if obs.events[2].Type != EventFinalized {
		t.Fatal("Expected EventFinalized")
	}

	unsubscribe()
	table.Insert(1, "test2")
	if len(obs.events) != 3 {
		t.Fatal("Should not receive events after unsubscribe")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var got []EventType
	unsubscribe := table.Subscribe(ObserverFunc(func(e Event) {
		got = append(got, e.Type)
	}))
	defer unsubscribe()

	h, _ := table.Insert(1, "x")
	table.Remove(h)

	if len(got) != 2 || got[0] != EventCreated || got[1] != EventFinalized {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestTable_Collect(t *testing.T) {
	table := NewTable()

	counters := []*finalizeCounter{{}, {}, {}}
	for _, c := range counters {
		table.Insert(1, c)
	}

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	if n := table.Collect(); n != 3 {
		t.Fatalf("Collect freed %d, want 3", n)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Collect")
	}
	for i, c := range counters {
		if c.count != 1 {
			t.Fatalf("counter %d finalized %d times", i, c.count)
		}
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	f := &finalizeCounter{}

	table.Insert(1, f)
	table.Insert(1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if f.count != 1 {
		t.Fatalf("Close should finalize live resources, count=%d", f.count)
	}

	h, err := table.Insert(1, "c")
	if h != 0 || !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected Insert to fail after Close, got handle %d err %v", h, err)
	}
}

func TestTable_EachAndTypeID(t *testing.T) {
	table := NewTable()
	h1, _ := table.Insert(1, "a")
	h2, _ := table.Insert(2, "b")
	table.Remove(h1)

	var seen []Handle
	table.Each(func(h Handle, typeID uint32, value any) bool {
		seen = append(seen, h)
		return true
	})
	if len(seen) != 1 || seen[0] != h2 {
		t.Fatalf("Each saw %v, want [%d]", seen, h2)
	}

	typeID, ok := table.TypeID(h2)
	if !ok || typeID != 2 {
		t.Fatalf("TypeID = %d, %v", typeID, ok)
	}
	if _, ok := table.TypeID(h1); ok {
		t.Fatal("TypeID of a removed handle should fail")
	}
}
