package renderer

import (
	"errors"
	"slices"
	"testing"
)

func TestRegistryUnwindsInReverseOrder(t *testing.T) {
	reg := NewRegistry()
	var destroyed []string
	for _, name := range []string{"instance", "surface", "device"} {
		name := name
		reg.Push(KindInstance, name, func() { destroyed = append(destroyed, name) })
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 live entries, got %d", reg.Len())
	}

	reg.Unwind()

	want := []string{"device", "surface", "instance"}
	if !slices.Equal(destroyed, want) {
		t.Fatalf("destroy order %v, want %v", destroyed, want)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", reg.Len())
	}
}

func TestRegistryUnwindToMark(t *testing.T) {
	reg := NewRegistry()
	var destroyed []int
	push := func(i int) { reg.Push(KindBuffer, "b", func() { destroyed = append(destroyed, i) }) }

	push(1)
	push(2)
	mark := reg.Mark()
	push(3)
	push(4)

	reg.UnwindTo(mark)
	if !slices.Equal(destroyed, []int{4, 3}) {
		t.Fatalf("destroyed %v, want [4 3]", destroyed)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 entries below the mark, got %d", reg.Len())
	}

	// unwinding to the same mark again is a no-op
	reg.UnwindTo(mark)
	if len(destroyed) != 2 {
		t.Fatalf("second unwind destroyed again: %v", destroyed)
	}
}

func TestRegistryReleaseSkipsUnwind(t *testing.T) {
	reg := NewRegistry()
	calls := map[string]int{}
	reg.Push(KindBuffer, "a", func() { calls["a"]++ })
	id := reg.Push(KindBuffer, "b", func() { calls["b"]++ })
	reg.Push(KindBuffer, "c", func() { calls["c"]++ })

	reg.Release(id)
	if calls["b"] != 1 {
		t.Fatalf("release did not destroy b")
	}
	if got := reg.Kinds(); len(got) != 2 {
		t.Fatalf("expected 2 live kinds after release, got %v", got)
	}

	reg.Unwind()
	for name, n := range calls {
		if n != 1 {
			t.Errorf("%s destroyed %d times", name, n)
		}
	}
}

func TestRegistryContractViolationsPanic(t *testing.T) {
	reg := NewRegistry()
	id := reg.Push(KindFence, "f", func() {})
	reg.Release(id)

	mustPanic(t, "double release", func() { reg.Release(id) })
	mustPanic(t, "unknown id", func() { reg.Release(ResourceID(99)) })
	mustPanic(t, "mark above top", func() { reg.UnwindTo(Mark(5)) })
	mustPanic(t, "negative mark", func() { reg.UnwindTo(Mark(-1)) })
}

func TestRegistryIDsAreNeverReused(t *testing.T) {
	reg := NewRegistry()
	a := reg.Push(KindBuffer, "a", func() {})
	reg.Unwind()
	b := reg.Push(KindBuffer, "b", func() {})
	if b <= a {
		t.Fatalf("id %d reused after %d", b, a)
	}
}

func TestRegistryScopeUnwindsOnError(t *testing.T) {
	reg := NewRegistry()
	reg.Push(KindDevice, "device", func() {})

	var destroyed []string
	build := func(fail bool) (err error) {
		defer reg.Scope(&err)()
		reg.Push(KindBuffer, "one", func() { destroyed = append(destroyed, "one") })
		reg.Push(KindBuffer, "two", func() { destroyed = append(destroyed, "two") })
		if fail {
			return errors.New("boom")
		}
		return nil
	}

	if err := build(true); err == nil {
		t.Fatal("expected error")
	}
	if !slices.Equal(destroyed, []string{"two", "one"}) {
		t.Fatalf("destroyed %v", destroyed)
	}
	if reg.Len() != 1 {
		t.Fatalf("failed scope left %d entries, want 1", reg.Len())
	}

	if err := build(false); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 3 {
		t.Fatalf("successful scope kept %d entries, want 3", reg.Len())
	}
}
