package equation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags an expression node.
type Kind uint8

const (
	KindConst Kind = iota
	KindVar
	KindAdd
	KindMul
	KindPow
	KindSin
	KindCos
	KindExp
	KindAbs
)

var kindNames = map[Kind]string{
	KindConst: "const",
	KindVar:   "var",
	KindAdd:   "add",
	KindMul:   "mul",
	KindPow:   "pow",
	KindSin:   "sin",
	KindCos:   "cos",
	KindExp:   "exp",
	KindAbs:   "abs",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	// ErrUnknownSymbol is returned when an expression references a symbol the
	// lookup cannot resolve.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrDomain is returned when a node evaluates outside the real numbers or
	// overflows.
	ErrDomain = errors.New("domain error")
	// ErrMalformed is returned for structurally invalid trees.
	ErrMalformed = errors.New("malformed expression")
)

// Expr is a node of an expression tree. Const uses Value, Var uses Name, the
// remaining kinds use Args.
type Expr struct {
	Kind  Kind
	Value float64
	Name  string
	Args  []*Expr
}

// Lookup resolves a symbol to its value.
type Lookup func(symbol string) (float64, bool)

func Const(v float64) *Expr      { return &Expr{Kind: KindConst, Value: v} }
func Var(name string) *Expr      { return &Expr{Kind: KindVar, Name: name} }
func Add(terms ...*Expr) *Expr   { return &Expr{Kind: KindAdd, Args: terms} }
func Mul(factors ...*Expr) *Expr { return &Expr{Kind: KindMul, Args: factors} }
func Pow(base, exp *Expr) *Expr  { return &Expr{Kind: KindPow, Args: []*Expr{base, exp}} }
func Sin(x *Expr) *Expr          { return &Expr{Kind: KindSin, Args: []*Expr{x}} }
func Cos(x *Expr) *Expr          { return &Expr{Kind: KindCos, Args: []*Expr{x}} }
func Exp(x *Expr) *Expr          { return &Expr{Kind: KindExp, Args: []*Expr{x}} }
func Abs(x *Expr) *Expr          { return &Expr{Kind: KindAbs, Args: []*Expr{x}} }

// Eval reduces the tree to a scalar.
func (e *Expr) Eval(lookup Lookup) (float64, error) {
	if e == nil {
		return 0, fmt.Errorf("%w: nil node", ErrMalformed)
	}
	v, err := e.eval(lookup)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s evaluated to %v", ErrDomain, e, v)
	}
	return v, nil
}

func (e *Expr) eval(lookup Lookup) (float64, error) {
	switch e.Kind {
	case KindConst:
		return e.Value, nil
	case KindVar:
		v, ok := lookup(e.Name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, e.Name)
		}
		return v, nil
	case KindAdd, KindMul:
		if len(e.Args) == 0 {
			return 0, fmt.Errorf("%w: empty %s", ErrMalformed, e.Kind)
		}
		acc := 0.0
		if e.Kind == KindMul {
			acc = 1
		}
		for _, a := range e.Args {
			v, err := a.Eval(lookup)
			if err != nil {
				return 0, err
			}
			if e.Kind == KindAdd {
				acc += v
			} else {
				acc *= v
			}
		}
		return acc, nil
	case KindPow:
		if len(e.Args) != 2 {
			return 0, fmt.Errorf("%w: pow needs 2 args, got %d", ErrMalformed, len(e.Args))
		}
		b, err := e.Args[0].Eval(lookup)
		if err != nil {
			return 0, err
		}
		x, err := e.Args[1].Eval(lookup)
		if err != nil {
			return 0, err
		}
		if b < 0 && x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %v^%v is not real", ErrDomain, b, x)
		}
		if b == 0 && x < 0 {
			return 0, fmt.Errorf("%w: division by zero in %s", ErrDomain, e)
		}
		return math.Pow(b, x), nil
	case KindSin, KindCos, KindExp, KindAbs:
		if len(e.Args) != 1 {
			return 0, fmt.Errorf("%w: %s needs 1 arg, got %d", ErrMalformed, e.Kind, len(e.Args))
		}
		x, err := e.Args[0].Eval(lookup)
		if err != nil {
			return 0, err
		}
		switch e.Kind {
		case KindSin:
			return math.Sin(x), nil
		case KindCos:
			return math.Cos(x), nil
		case KindExp:
			return math.Exp(x), nil
		default:
			return math.Abs(x), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown node %s", ErrMalformed, e.Kind)
}

// Symbols returns the sorted, de-duplicated variable names referenced by e.
func (e *Expr) Symbols() []string {
	seen := map[string]struct{}{}
	var walk func(*Expr)
	walk = func(n *Expr) {
		if n == nil {
			return
		}
		if n.Kind == KindVar {
			seen[n.Name] = struct{}{}
		}
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(e)
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// String renders e in the infix syntax accepted by Parse.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch e.Kind {
	case KindConst:
		s := strconv.FormatFloat(e.Value, 'g', -1, 64)
		if e.Value < 0 {
			s = "(" + s + ")"
		}
		b.WriteString(s)
	case KindVar:
		b.WriteString(e.Name)
	case KindAdd:
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(" + ")
			}
			a.write(b)
		}
	case KindMul:
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString("*")
			}
			if a.Kind == KindAdd {
				b.WriteString("(")
				a.write(b)
				b.WriteString(")")
				continue
			}
			a.write(b)
		}
	case KindPow:
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString("^")
			}
			if a.Kind == KindAdd || a.Kind == KindMul || a.Kind == KindPow {
				b.WriteString("(")
				a.write(b)
				b.WriteString(")")
				continue
			}
			a.write(b)
		}
	default:
		b.WriteString(e.Kind.String())
		b.WriteString("(")
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteString(")")
	}
}
