package httpserver

import "fmt"

// Method is one of the request methods the router understands.
type Method int

const (
	GET Method = iota
	POST
	PUT
	DELETE
)

var methodNames = [...]string{
	GET:    "GET",
	POST:   "POST",
	PUT:    "PUT",
	DELETE: "DELETE",
}

func (m Method) String() string {
	if !m.valid() {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

func (m Method) valid() bool {
	return m >= GET && m <= DELETE
}

// ParseMethod maps the exact upper-case literal to a Method.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Handler produces the body of a response. The dispatcher owns the returned
// slice once Produce returns.
type Handler interface {
	Produce() []byte
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func() []byte

func (f HandlerFunc) Produce() []byte {
	return f()
}

// RouteKey identifies a route. Two keys are equal when both the method and the
// path match exactly.
type RouteKey struct {
	Method Method
	Path   string
}

func (k RouteKey) String() string {
	return k.Method.String() + " " + k.Path
}

// Route binds a RouteKey to a Handler.
type Route struct {
	Method  Method
	Path    string
	Handler Handler
}

// Key returns the lookup key for r.
func (r Route) Key() RouteKey {
	return RouteKey{Method: r.Method, Path: r.Path}
}

// DefaultRouteCapacity is the starting capacity of a server's route table.
const DefaultRouteCapacity = 4

// RouteTable is an insertion-ordered list of routes with linear lookup.
// Route tables are expected to hold tens of entries, so every operation is a
// plain scan. A RouteTable is not safe for concurrent use.
type RouteTable struct {
	items []Route
}

// NewRouteTable returns an empty table with the given starting capacity.
func NewRouteTable(capacity int) *RouteTable {
	if capacity <= 0 {
		capacity = DefaultRouteCapacity
	}
	return &RouteTable{items: make([]Route, 0, capacity)}
}

// Len returns the number of registered routes.
func (t *RouteTable) Len() int {
	return len(t.items)
}

// Cap returns the current capacity of the backing storage.
func (t *RouteTable) Cap() int {
	return cap(t.items)
}

// Add appends r, doubling the capacity when the table is full. Duplicate keys
// are accepted; lookups return the first one registered.
func (t *RouteTable) Add(r Route) error {
	if !r.Method.valid() || r.Handler == nil {
		return fmt.Errorf("%w: %s", ErrInvalidRoute, r.Key())
	}
	if len(t.items) == cap(t.items) {
		newCap := 2 * cap(t.items)
		if newCap == 0 {
			newCap = DefaultRouteCapacity
		}
		grown := make([]Route, len(t.items), newCap)
		copy(grown, t.items)
		t.items = grown
	}
	t.items = append(t.items, r)
	return nil
}

// Remove deletes the first route equal to key. Later routes shift down by one
// so relative order is preserved.
func (t *RouteTable) Remove(key RouteKey) error {
	i, ok := t.Find(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, key)
	}
	return t.RemoveAt(i)
}

// RemoveAt deletes the route at index i.
func (t *RouteTable) RemoveAt(i int) error {
	if i < 0 || i >= len(t.items) {
		return fmt.Errorf("%w: index %d", ErrRouteNotFound, i)
	}
	last := len(t.items) - 1
	copy(t.items[i:], t.items[i+1:])
	// clear the vacated slot so the handler can be collected
	t.items[last] = Route{}
	t.items = t.items[:last]
	return nil
}

// Find returns the index of the first route equal to key.
func (t *RouteTable) Find(key RouteKey) (int, bool) {
	for i := range t.items {
		if t.items[i].Key() == key {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns the first route equal to key.
func (t *RouteTable) Lookup(key RouteKey) (Route, bool) {
	i, ok := t.Find(key)
	if !ok {
		return Route{}, false
	}
	return t.items[i], true
}

// Clone returns an independent copy of t with the same capacity.
func (t *RouteTable) Clone() *RouteTable {
	items := make([]Route, len(t.items), cap(t.items))
	copy(items, t.items)
	return &RouteTable{items: items}
}

// Routes returns a copy of the registered routes in insertion order.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.items))
	copy(out, t.items)
	return out
}
