package crs

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// node is one WKT keyword with its bracketed arguments, e.g.
// SPHEROID["GRS 1980",6378137,298.257222101].
type node struct {
	keyword string
	args    []arg
}

// arg is a quoted string, a number, a bare identifier (such as the EAST in
// AXIS["x",EAST]) or a nested node.
type arg struct {
	str   string
	num   float64
	isNum bool
	child *node
}

func (n *node) child(keyword string) *node {
	for _, a := range n.args {
		if a.child != nil && a.child.keyword == keyword {
			return a.child
		}
	}
	return nil
}

func (n *node) children(keyword string) []*node {
	var out []*node
	for _, a := range n.args {
		if a.child != nil && a.child.keyword == keyword {
			out = append(out, a.child)
		}
	}
	return out
}

// name returns the first argument, which for every WKT1 keyword is the
// quoted object name.
func (n *node) name() string {
	if len(n.args) == 0 || n.args[0].child != nil || n.args[0].isNum {
		return ""
	}
	return n.args[0].str
}

// numbers returns the numeric arguments in order.
func (n *node) numbers() []float64 {
	var out []float64
	for _, a := range n.args {
		if a.isNum {
			out = append(out, a.num)
		}
	}
	return out
}

type wktParser struct {
	src string
	pos int
}

// parseWKT parses a single WKT1 object. Both [] and () delimiters are
// accepted.
func parseWKT(src string) (*node, error) {
	p := &wktParser{src: src}
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}
	return n, nil
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *wktParser) parseNode() (*node, error) {
	p.skipSpace()
	kw := p.ident()
	if kw == "" {
		return nil, fmt.Errorf("expected keyword at offset %d", p.pos)
	}
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		return nil, fmt.Errorf("expected '[' after %s at offset %d", kw, p.pos)
	}
	closer := byte(']')
	if p.src[p.pos] == '(' {
		closer = ')'
	}
	p.pos++

	n := &node{keyword: strings.ToUpper(kw)}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated %s", n.keyword)
		}
		if p.src[p.pos] == closer {
			p.pos++
			return n, nil
		}
		if len(n.args) > 0 {
			if p.src[p.pos] != ',' {
				return nil, fmt.Errorf("expected ',' in %s at offset %d", n.keyword, p.pos)
			}
			p.pos++
			p.skipSpace()
		}
		a, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, a)
	}
}

func (p *wktParser) parseArg() (arg, error) {
	if p.pos >= len(p.src) {
		return arg{}, fmt.Errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '"':
		s, err := p.quoted()
		return arg{str: s}, err
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE", p.src[p.pos]) >= 0 {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return arg{}, fmt.Errorf("bad number %q at offset %d", p.src[start:p.pos], start)
		}
		return arg{num: v, isNum: true}, nil
	default:
		save := p.pos
		id := p.ident()
		if id == "" {
			return arg{}, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
		}
		p.skipSpace()
		if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '(') {
			p.pos = save
			n, err := p.parseNode()
			return arg{child: n}, err
		}
		return arg{str: id}, nil
	}
}

// quoted reads a double-quoted string. A doubled quote is an escaped quote.
func (p *wktParser) quoted() (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unterminated string")
}
