package index

import (
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

type predicateOp int

const (
	opEq predicateOp = iota
	opEqBool
	opAnd
	opOr
	opNot
)

// Predicate is a boolean filter expression over document fields: field
// equality composed with AND, OR and NOT. It compiles to the index's native
// filter representation and renders as a `field eq 'value'` expression for
// logs and tests.
type Predicate struct {
	op    predicateOp
	field string
	str   string
	b     bool
	args  []*Predicate
}

// Eq matches documents whose field equals value.
func Eq(field, value string) *Predicate {
	return &Predicate{op: opEq, field: field, str: value}
}

// EqBool matches documents whose boolean field equals value.
func EqBool(field string, value bool) *Predicate {
	return &Predicate{op: opEqBool, field: field, b: value}
}

// And combines predicates conjunctively. Nil operands are dropped; a single
// surviving operand is returned unwrapped, and nil when none survive.
func And(preds ...*Predicate) *Predicate {
	return combine(opAnd, preds)
}

// Or combines predicates disjunctively with the same nil handling as And.
func Or(preds ...*Predicate) *Predicate {
	return combine(opOr, preds)
}

// Not negates a predicate. Not(nil) is nil.
func Not(p *Predicate) *Predicate {
	if p == nil {
		return nil
	}
	return &Predicate{op: opNot, args: []*Predicate{p}}
}

// AnyOf builds an OR-of-equalities over one field: nil for no values, a bare
// equality for one, a disjunction for several.
func AnyOf(field string, values []string) *Predicate {
	preds := make([]*Predicate, 0, len(values))
	for _, v := range values {
		preds = append(preds, Eq(field, v))
	}
	return Or(preds...)
}

// NotMetadata excludes the reserved sync metadata record. It is the base
// predicate every item query is AND-combined with.
func NotMetadata() *Predicate {
	return Not(EqBool("is_metadata", true))
}

func combine(op predicateOp, preds []*Predicate) *Predicate {
	kept := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &Predicate{op: op, args: kept}
	}
}

// String renders the predicate in the filter expression grammar,
// e.g. (work_item_id eq '123' or work_item_id eq '456').
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	switch p.op {
	case opEq:
		return fmt.Sprintf("%s eq '%s'", p.field, p.str)
	case opEqBool:
		return fmt.Sprintf("%s eq %t", p.field, p.b)
	case opAnd:
		parts := make([]string, len(p.args))
		for i, arg := range p.args {
			parts[i] = "(" + arg.String() + ")"
		}
		return strings.Join(parts, " and ")
	case opOr:
		parts := make([]string, len(p.args))
		for i, arg := range p.args {
			parts[i] = arg.String()
		}
		return "(" + strings.Join(parts, " or ") + ")"
	case opNot:
		return "not (" + p.args[0].String() + ")"
	default:
		return ""
	}
}

// filter compiles the predicate into a Qdrant filter.
func (p *Predicate) filter() *qdrant.Filter {
	if p == nil {
		return nil
	}
	if p.op == opNot {
		return &qdrant.Filter{MustNot: []*qdrant.Condition{p.args[0].condition()}}
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{p.condition()}}
}

// condition compiles the predicate into a single Qdrant condition, nesting
// sub-filters for composite expressions.
func (p *Predicate) condition() *qdrant.Condition {
	switch p.op {
	case opEq:
		return qdrant.NewMatch(p.field, p.str)
	case opEqBool:
		return qdrant.NewMatchBool(p.field, p.b)
	case opAnd:
		must := make([]*qdrant.Condition, len(p.args))
		for i, arg := range p.args {
			must[i] = arg.condition()
		}
		return nestedFilter(&qdrant.Filter{Must: must})
	case opOr:
		should := make([]*qdrant.Condition, len(p.args))
		for i, arg := range p.args {
			should[i] = arg.condition()
		}
		return nestedFilter(&qdrant.Filter{Should: should})
	case opNot:
		return nestedFilter(&qdrant.Filter{MustNot: []*qdrant.Condition{p.args[0].condition()}})
	default:
		return nil
	}
}

func nestedFilter(f *qdrant.Filter) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Filter{Filter: f},
	}
}
