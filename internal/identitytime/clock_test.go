package identitytime

import "testing"

func TestUUIDv7GeneratorMonotonic(t *testing.T) {
	t.Parallel()

	gen := UUIDv7Generator{}
	prev, err := gen.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 1000; i++ {
		next, err := gen.New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if next.String() <= prev.String() {
			t.Fatalf("expected strictly increasing ids, got %s then %s", prev, next)
		}
		prev = next
	}
}

func TestUUIDv7GeneratorVersion(t *testing.T) {
	t.Parallel()

	id, err := UUIDv7Generator{}.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.Version().String() != "VERSION_7" {
		t.Fatalf("expected version 7, got %s", id.Version())
	}
}

func TestSystemClockNowMS(t *testing.T) {
	t.Parallel()

	a := SystemClock{}.NowMS()
	b := SystemClock{}.NowMS()
	if b < a {
		t.Fatalf("clock went backwards: %d then %d", a, b)
	}
}
