package httpserver

import (
	"errors"
	"fmt"
	"testing"
)

func body(s string) Handler {
	return HandlerFunc(func() []byte { return []byte(s) })
}

func keys(t *RouteTable) []RouteKey {
	var out []RouteKey
	for _, r := range t.Routes() {
		out = append(out, r.Key())
	}
	return out
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"GET", "POST", "PUT", "DELETE"} {
		m, err := ParseMethod(name)
		if err != nil {
			t.Fatalf("ParseMethod(%q) failed: %v", name, err)
		}
		if m.String() != name {
			t.Errorf("Expected %s, got %s", name, m)
		}
	}

	for _, name := range []string{"get", "PATCH", "HEAD", ""} {
		if _, err := ParseMethod(name); !errors.Is(err, ErrUnknownMethod) {
			t.Errorf("ParseMethod(%q): expected ErrUnknownMethod, got %v", name, err)
		}
	}
}

func TestRouteTableRoundTrip(t *testing.T) {
	table := NewRouteTable(DefaultRouteCapacity)
	r := Route{Method: GET, Path: "/hello", Handler: body("Hi")}

	if err := table.Add(r); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if i, ok := table.Find(r.Key()); !ok || i != 0 {
		t.Fatalf("Find after Add = (%d, %v), want (0, true)", i, ok)
	}

	if err := table.Remove(r.Key()); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := table.Find(r.Key()); ok {
		t.Error("Find after Remove should fail")
	}
	if err := table.Remove(r.Key()); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("Expected ErrRouteNotFound on second Remove, got %v", err)
	}
}

func TestRouteEquality(t *testing.T) {
	table := NewRouteTable(0)
	if err := table.Add(Route{Method: GET, Path: "/users", Handler: body("")}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	misses := []RouteKey{
		{Method: POST, Path: "/users"},
		{Method: GET, Path: "/users/"},
		{Method: GET, Path: "/Users"},
		{Method: GET, Path: "/user"},
	}
	for _, k := range misses {
		if _, ok := table.Find(k); ok {
			t.Errorf("Find(%s) should not match GET /users", k)
		}
	}
}

func TestRouteTableRemovePreservesOrder(t *testing.T) {
	table := NewRouteTable(2)
	for _, p := range []string{"/a", "/b", "/c", "/d", "/e"} {
		if err := table.Add(Route{Method: GET, Path: p, Handler: body(p)}); err != nil {
			t.Fatalf("Add(%s) failed: %v", p, err)
		}
	}

	if err := table.Remove(RouteKey{Method: GET, Path: "/b"}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := table.RemoveAt(2); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}

	got := fmt.Sprint(keys(table))
	want := "[GET /a GET /c GET /e]"
	if got != want {
		t.Errorf("Expected order %s, got %s", want, got)
	}

	// the vacated tail slots are cleared
	tail := table.items[:cap(table.items)][table.Len():]
	for i, r := range tail {
		if r.Handler != nil || r.Path != "" {
			t.Errorf("Tail slot %d not cleared: %+v", i, r)
		}
	}
}

func TestRouteTableGrowth(t *testing.T) {
	table := NewRouteTable(DefaultRouteCapacity)
	initial := table.Cap()

	for i := 0; i <= initial; i++ {
		p := fmt.Sprintf("/r%d", i)
		if err := table.Add(Route{Method: PUT, Path: p, Handler: body(p)}); err != nil {
			t.Fatalf("Add(%s) failed: %v", p, err)
		}
	}

	if table.Len() != initial+1 {
		t.Errorf("Expected %d routes, got %d", initial+1, table.Len())
	}
	if table.Cap() < 2*initial {
		t.Errorf("Expected capacity to at least double from %d, got %d", initial, table.Cap())
	}
	for i := 0; i <= initial; i++ {
		p := fmt.Sprintf("/r%d", i)
		r, ok := table.Lookup(RouteKey{Method: PUT, Path: p})
		if !ok {
			t.Fatalf("Route %s lost after growth", p)
		}
		if string(r.Handler.Produce()) != p {
			t.Errorf("Route %s has wrong handler", p)
		}
	}
}

func TestRouteTableDuplicatesFirstMatchWins(t *testing.T) {
	table := NewRouteTable(DefaultRouteCapacity)
	table.Add(Route{Method: GET, Path: "/dup", Handler: body("first")})
	table.Add(Route{Method: GET, Path: "/dup", Handler: body("second")})

	if table.Len() != 2 {
		t.Fatalf("Expected duplicates to be kept, got %d routes", table.Len())
	}
	r, ok := table.Lookup(RouteKey{Method: GET, Path: "/dup"})
	if !ok || string(r.Handler.Produce()) != "first" {
		t.Errorf("Expected first registration to win")
	}

	table.Remove(RouteKey{Method: GET, Path: "/dup"})
	r, _ = table.Lookup(RouteKey{Method: GET, Path: "/dup"})
	if string(r.Handler.Produce()) != "second" {
		t.Errorf("Expected second registration after removing the first")
	}
}

func TestRouteTableRejectsInvalidRoutes(t *testing.T) {
	table := NewRouteTable(DefaultRouteCapacity)

	if err := table.Add(Route{Method: GET, Path: "/nil"}); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute for nil handler, got %v", err)
	}
	if err := table.Add(Route{Method: Method(42), Path: "/x", Handler: body("")}); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("Expected ErrInvalidRoute for unknown method, got %v", err)
	}
	if err := table.RemoveAt(0); !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("Expected ErrRouteNotFound for RemoveAt on empty table, got %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d routes", table.Len())
	}
}

func TestRouteTableClone(t *testing.T) {
	table := NewRouteTable(DefaultRouteCapacity)
	table.Add(Route{Method: GET, Path: "/a", Handler: body("a")})

	clone := table.Clone()
	clone.Add(Route{Method: GET, Path: "/b", Handler: body("b")})

	if table.Len() != 1 {
		t.Errorf("Clone modified the original table: %d routes", table.Len())
	}
	if clone.Len() != 2 || clone.Cap() != table.Cap() {
		t.Errorf("Unexpected clone len=%d cap=%d", clone.Len(), clone.Cap())
	}
}
