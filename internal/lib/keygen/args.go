package keygen

// NamedArg is a single named argument of a wrapped call.
type NamedArg struct {
	Name  string
	Value any
}

// Args carries the arguments of a wrapped call: positional values in order,
// followed by named values in call order.
type Args struct {
	Positional []any
	Named      []NamedArg
}

// KeyFactory turns call arguments into a cache key.
// The returned key must be comparable; Build is the default.
type KeyFactory func(args Args) (any, error)

// Positional returns Args holding the given positional values.
func Positional(vals ...any) Args {
	return Args{Positional: vals}
}

// With returns a copy of a with one more named argument appended.
func (a Args) With(name string, value any) Args {
	named := make([]NamedArg, len(a.Named), len(a.Named)+1)
	copy(named, a.Named)
	return Args{
		Positional: a.Positional,
		Named:      append(named, NamedArg{Name: name, Value: value}),
	}
}
