package assets

import "fmt"

// Location is a resolved asset: the descriptor plus the local path holding
// its content. Path is a directory when the archive was extracted, otherwise
// the archive file itself.
type Location struct {
	Descriptor
	Path    string
	Archive bool
}

// Resolved is the read-only table produced by resolution. It is safe for
// concurrent readers.
type Resolved struct {
	byName map[string]Location
	order  []string
}

// NewResolved builds a table from locations. Names must be unique.
func NewResolved(locations ...Location) (*Resolved, error) {
	r := &Resolved{byName: make(map[string]Location, len(locations))}
	for _, loc := range locations {
		if _, dup := r.byName[loc.Name]; dup {
			return nil, fmt.Errorf("duplicate asset name %q", loc.Name)
		}
		r.byName[loc.Name] = loc
		r.order = append(r.order, loc.Name)
	}
	return r, nil
}

// Merge returns a table holding the locations of all inputs.
func Merge(tables ...*Resolved) (*Resolved, error) {
	var all []Location
	for _, t := range tables {
		all = append(all, t.All()...)
	}
	return NewResolved(all...)
}

// Lookup returns the location of the named asset.
func (r *Resolved) Lookup(name string) (Location, bool) {
	if r == nil {
		return Location{}, false
	}
	loc, ok := r.byName[name]
	return loc, ok
}

// All returns every location in resolution order.
func (r *Resolved) All() []Location {
	if r == nil {
		return nil
	}
	out := make([]Location, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// ByKind returns the locations of the given kind in resolution order.
func (r *Resolved) ByKind(kind Kind) []Location {
	var out []Location
	for _, loc := range r.All() {
		if loc.Kind == kind {
			out = append(out, loc)
		}
	}
	return out
}

// ForScenario returns the locations of the given kind recorded for scenario.
func (r *Resolved) ForScenario(kind Kind, scenario string) []Location {
	var out []Location
	for _, loc := range r.ByKind(kind) {
		if loc.Scenario == scenario {
			out = append(out, loc)
		}
	}
	return out
}

// Len reports the number of resolved assets.
func (r *Resolved) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
