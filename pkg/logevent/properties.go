package logevent

// Property is a named value attached to an event.
type Property struct {
	Name  string
	Value Value
}

// Properties is an immutable, insertion-ordered set of uniquely named
// properties. The zero value is an empty set. Every "mutating" method returns
// a new set and leaves the receiver untouched, so a set can be shared between
// goroutines without locking.
type Properties struct {
	list  []Property
	index map[string]int
}

// NewProperties builds a set from props. When a name repeats, the first
// occurrence wins.
func NewProperties(props ...Property) Properties {
	var p Properties
	for _, prop := range props {
		p = p.AddIfAbsent(prop.Name, prop.Value)
	}
	return p
}

// Len returns the number of properties.
func (p Properties) Len() int {
	return len(p.list)
}

// Get returns the value stored under name.
func (p Properties) Get(name string) (Value, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.list[i].Value, true
}

// Has reports whether name is present.
func (p Properties) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// AddIfAbsent returns a set with name bound to v. If name is already present
// the receiver is returned unchanged.
func (p Properties) AddIfAbsent(name string, v Value) Properties {
	if p.Has(name) {
		return p
	}
	if v == nil {
		v = Scalar{}
	}
	list := make([]Property, len(p.list), len(p.list)+1)
	copy(list, p.list)
	list = append(list, Property{Name: name, Value: v})

	index := make(map[string]int, len(list))
	for k, i := range p.index {
		index[k] = i
	}
	index[name] = len(list) - 1

	return Properties{list: list, index: index}
}

// Merge returns a set holding p followed by every property of other whose
// name is not already present in p.
func (p Properties) Merge(other Properties) Properties {
	out := p
	for _, prop := range other.list {
		out = out.AddIfAbsent(prop.Name, prop.Value)
	}
	return out
}

// Range calls fn for each property in insertion order until fn returns false.
func (p Properties) Range(fn func(Property) bool) {
	for _, prop := range p.list {
		if !fn(prop) {
			return
		}
	}
}

// Names returns the property names in insertion order.
func (p Properties) Names() []string {
	names := make([]string, len(p.list))
	for i, prop := range p.list {
		names[i] = prop.Name
	}
	return names
}

// Slice returns a copy of the properties in insertion order.
func (p Properties) Slice() []Property {
	out := make([]Property, len(p.list))
	copy(out, p.list)
	return out
}
