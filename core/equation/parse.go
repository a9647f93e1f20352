package equation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || c == '.':
			start := i
			for i < len(src) && (unicode.IsDigit(rune(src[i])) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && unicode.IsDigit(rune(src[j])) {
					i = j
					for i < len(src) && unicode.IsDigit(rune(src[i])) {
						i++
					}
				}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(src) && (unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i])) || src[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^", c):
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

var functions = map[string]func(*Expr) *Expr{
	"sin": Sin,
	"cos": Cos,
	"exp": Exp,
	"abs": Abs,
}

type parser struct {
	toks []token
	pos  int
}

// Parse builds an expression tree from infix text. Supported syntax: numbers,
// identifiers, + - * / ^ (or **), unary minus, parentheses and the functions
// sin, cos, exp and abs. Subtraction and division are lowered onto add, mul
// and pow nodes.
func Parse(src string) (*Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, t.text, t.pos)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for literal
// expressions known at compile time.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("equation: parse %q: %v", src, err))
	}
	return e
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) expr() (*Expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []*Expr{first}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			t = negate(t)
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return Add(terms...), nil
}

func (p *parser) term() (*Expr, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []*Expr{first}
	for p.isOp("*") || p.isOp("/") {
		op := p.next().text
		f, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "/" {
			f = Pow(f, Const(-1))
		}
		factors = append(factors, f)
	}
	if len(factors) == 1 {
		return first, nil
	}
	return Mul(factors...), nil
}

func (p *parser) unary() (*Expr, error) {
	if p.isOp("-") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negate(x), nil
	}
	if p.isOp("+") {
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (*Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return Pow(base, exp), nil
}

func (p *parser) primary() (*Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q at %d", ErrMalformed, t.text, t.pos)
		}
		return Const(v), nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return Var(t.text), nil
		}
		fn, ok := functions[strings.ToLower(t.text)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown function %q at %d", ErrMalformed, t.text, t.pos)
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ) after %s argument at %d", ErrMalformed, t.text, r.pos)
		}
		return fn(arg), nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ) at %d", ErrMalformed, r.pos)
		}
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, t.text, t.pos)
}

func negate(x *Expr) *Expr {
	if x.Kind == KindConst {
		return Const(-x.Value)
	}
	return Mul(Const(-1), x)
}
