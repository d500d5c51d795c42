package course

// MetaOption is a single key/value pair from the config's options block.
// Options are opaque to the editor and written back in their original order.
type MetaOption struct {
	Key   string
	Value string
}

// Meta carries the course-level header data of an AutoDrive config.
type Meta struct {
	ConfigVersion string
	RouteVersion  string
	RouteAuthor   string
	MapName       string
	Options       []MetaOption
}

// Option returns the value of the named option, if present.
func (m *Meta) Option(key string) (string, bool) {
	for _, o := range m.Options {
		if o.Key == key {
			return o.Value, true
		}
	}
	return "", false
}

// SetOption updates an existing option in place or appends a new one,
// preserving the order of everything already present.
func (m *Meta) SetOption(key, value string) {
	for i := range m.Options {
		if m.Options[i].Key == key {
			m.Options[i].Value = value
			return
		}
	}
	m.Options = append(m.Options, MetaOption{Key: key, Value: value})
}

// Clone returns a deep copy of the meta block.
func (m Meta) Clone() Meta {
	out := m
	out.Options = append([]MetaOption(nil), m.Options...)
	return out
}
