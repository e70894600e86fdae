package templater

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The arithmetic half of expression evaluation: a tokenizer, a small
// precedence-climbing parser, and an interpreter over the resulting tree.
// Only decimal numbers, the operators + - * / % **, unary signs,
// parentheses, and the constants pi and e (bare or as zero-argument calls)
// are accepted. Anything else fails the parse; nothing is ever executed as
// code.

type mathTokenType int

const (
	mathNumber mathTokenType = iota
	mathIdent
	mathOperator
	mathLParen
	mathRParen
)

type mathToken struct {
	typ mathTokenType
	val string
}

// Binary operator precedence. ** binds tightest and is right-associative;
// unary signs sit between * and ** so that -2**2 is -(2**2).
var mathPrecedence = map[string]int{
	"+":  10,
	"-":  10,
	"*":  20,
	"/":  20,
	"%":  20,
	"**": 40,
}

const mathUnaryPrecedence = 30

var mathConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// evaluateMath parses and interprets an arithmetic expression. ok is false
// when the input is not wholly covered by the arithmetic grammar.
func evaluateMath(expr string) (float64, bool) {
	tokens, err := mathTokenize(expr)
	if err != nil {
		return 0, false
	}
	if len(tokens) == 0 {
		return 0, false
	}
	p := &mathParser{tokens: tokens}
	node, err := p.parseBinary(0)
	if err != nil {
		return 0, false
	}
	if p.pos != len(p.tokens) {
		return 0, false
	}
	return node.eval(), true
}

func mathTokenize(expr string) ([]mathToken, error) {
	var tokens []mathToken
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				i++
			}
			val := expr[start:i]
			if strings.Count(val, ".") > 1 || val == "." {
				return nil, fmt.Errorf("invalid number %q", val)
			}
			tokens = append(tokens, mathToken{mathNumber, val})
		case isMathLetter(c):
			start := i
			for i < len(expr) && isMathLetter(expr[i]) {
				i++
			}
			tokens = append(tokens, mathToken{mathIdent, expr[start:i]})
		case c == '*':
			if i+1 < len(expr) && expr[i+1] == '*' {
				tokens = append(tokens, mathToken{mathOperator, "**"})
				i += 2
			} else {
				tokens = append(tokens, mathToken{mathOperator, "*"})
				i++
			}
		case c == '+' || c == '-' || c == '/' || c == '%':
			tokens = append(tokens, mathToken{mathOperator, string(c)})
			i++
		case c == '(':
			tokens = append(tokens, mathToken{mathLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, mathToken{mathRParen, ")"})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

func isMathLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

type mathNode interface {
	eval() float64
}

type numberNode struct{ value float64 }

func (n numberNode) eval() float64 { return n.value }

type unaryNode struct {
	op      string
	operand mathNode
}

func (n unaryNode) eval() float64 {
	if n.op == "-" {
		return -n.operand.eval()
	}
	return n.operand.eval()
}

type binaryNode struct {
	op          string
	left, right mathNode
}

func (n binaryNode) eval() float64 {
	l, r := n.left.eval(), n.right.eval()
	switch n.op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		// IEEE division: x/0 is +-Inf, 0/0 is NaN.
		return l / r
	case "%":
		return math.Mod(l, r)
	case "**":
		return math.Pow(l, r)
	}
	return math.NaN()
}

type mathParser struct {
	tokens []mathToken
	pos    int
}

func (p *mathParser) peek() (mathToken, bool) {
	if p.pos >= len(p.tokens) {
		return mathToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *mathParser) parseBinary(precedence int) (mathNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.typ != mathOperator {
			break
		}
		prec := mathPrecedence[tok.val]
		if prec < precedence {
			break
		}
		p.pos++
		// Right associativity for ** falls out of recursing at the same
		// precedence instead of one higher.
		next := prec + 1
		if tok.val == "**" {
			next = prec
		}
		right, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.val, left: left, right: right}
	}
	return left, nil
}

func (p *mathParser) parseUnary() (mathNode, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if tok.typ == mathOperator && (tok.val == "+" || tok.val == "-") {
		p.pos++
		operand, err := p.parseBinary(mathUnaryPrecedence)
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tok.val, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *mathParser) parsePrimary() (mathNode, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	p.pos++
	switch tok.typ {
	case mathNumber:
		v, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok.val)
		}
		return numberNode{value: v}, nil
	case mathIdent:
		v, known := mathConstants[strings.ToLower(tok.val)]
		if !known {
			return nil, fmt.Errorf("unknown identifier %q", tok.val)
		}
		// Constants may be written as zero-argument calls: pi() or e().
		if next, ok := p.peek(); ok && next.typ == mathLParen {
			p.pos++
			closing, ok := p.peek()
			if !ok || closing.typ != mathRParen {
				return nil, fmt.Errorf("%s takes no arguments", tok.val)
			}
			p.pos++
		}
		return numberNode{value: v}, nil
	case mathLParen:
		inner, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.typ != mathRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", tok.val)
	}
}
