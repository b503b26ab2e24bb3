package expr

import "strconv"

type nameEntry struct {
	alias string
	name  string
}

type valueEntry struct {
	alias string
	value any
}

// Params allocates placeholder aliases for one compiled command.
//
// Name aliases are deduplicated by real name; value aliases never are, even
// for equal values. A Params belongs to a single compile call and is not safe
// for concurrent use.
type Params struct {
	names   []nameEntry
	values  []valueEntry
	counter int
}

// NewParams returns an empty allocator.
func NewParams() *Params {
	return &Params{}
}

// Name returns the alias for a real attribute name, minting "#<n>" on first use.
func (p *Params) Name(real string) string {
	for _, e := range p.names {
		if e.name == real {
			return e.alias
		}
	}
	alias := "#" + strconv.Itoa(len(p.names))
	p.names = append(p.names, nameEntry{alias: alias, name: real})
	return alias
}

// Value mints a fresh ":<n>" alias for value.
func (p *Params) Value(value any) string {
	alias := ":" + strconv.Itoa(p.counter)
	p.counter++
	p.values = append(p.values, valueEntry{alias: alias, value: value})
	return alias
}

// Names returns a copy of the alias -> attribute name map, or nil if empty.
func (p *Params) Names() map[string]string {
	if len(p.names) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.names))
	for _, e := range p.names {
		out[e.alias] = e.name
	}
	return out
}

// Values returns a copy of the alias -> literal map, or nil if empty.
func (p *Params) Values() map[string]any {
	if len(p.values) == 0 {
		return nil
	}
	out := make(map[string]any, len(p.values))
	for _, e := range p.values {
		out[e.alias] = e.value
	}
	return out
}

// NameCount returns the number of name aliases allocated.
func (p *Params) NameCount() int { return len(p.names) }

// ValueCount returns the number of value aliases allocated.
func (p *Params) ValueCount() int { return len(p.values) }
