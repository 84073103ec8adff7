package predicate

import "github.com/hmans/speako/internal/record"

// Matcher reports whether a record satisfies one constraint.
type Matcher func(record.Record) bool

// Compile returns one matcher per constraint, in constraint order.
// The sentinel and the empty predicate both compile to no matchers.
func Compile(p Predicate) []Matcher {
	if p.all {
		return nil
	}
	matchers := make([]Matcher, 0, len(p.constraints))
	for _, c := range p.constraints {
		matchers = append(matchers, compileConstraint(c))
	}
	return matchers
}

// MatchAll combines matchers with logical AND.
func MatchAll(matchers []Matcher) Matcher {
	return func(rec record.Record) bool {
		for _, m := range matchers {
			if !m(rec) {
				return false
			}
		}
		return true
	}
}

func compileConstraint(c Constraint) Matcher {
	field, inner, want := c.Field, c.Inner, c.Value

	if c.Nested() {
		return func(rec record.Record) bool {
			related, ok := rec.Related(field)
			if !ok {
				return false
			}
			got, ok := related.Get(inner)
			return ok && record.Equal(got, want)
		}
	}

	return func(rec record.Record) bool {
		got, ok := rec.Get(field)
		return ok && record.Equal(got, want)
	}
}
