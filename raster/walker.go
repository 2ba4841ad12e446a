package raster

import (
	"strconv"
	"strings"
)

// Placement records where a named image XObject was drawn on a page. X and Y
// are the translation of the current transformation matrix at the time of the
// Do operator; they default to the page origin when no transform was applied.
type Placement struct {
	Name string
	X    float64
	Y    float64
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m concatenated with n (m applied first).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// walkState is the explicit state threaded through a content stream walk:
// the current transformation matrix, the q/Q save stack, and the placements
// collected so far.
type walkState struct {
	ctm        matrix
	stack      []matrix
	operands   []string
	placements []Placement
}

// WalkContent scans a decoded page content stream and returns the image
// placements found, in drawing order. Only the operators that affect image
// positioning are interpreted: q, Q, cm, and Do.
func WalkContent(content string) []Placement {
	state := &walkState{ctm: identity}

	for _, token := range tokenize(content) {
		switch token {
		case "q":
			state.stack = append(state.stack, state.ctm)
			state.operands = state.operands[:0]
		case "Q":
			if n := len(state.stack); n > 0 {
				state.ctm = state.stack[n-1]
				state.stack = state.stack[:n-1]
			}
			state.operands = state.operands[:0]
		case "cm":
			state.applyCM()
		case "Do":
			state.recordPlacement()
		default:
			if isOperand(token) {
				state.operands = append(state.operands, token)
			} else {
				// Any other operator consumes its operands.
				state.operands = state.operands[:0]
			}
		}
	}

	return state.placements
}

func (s *walkState) applyCM() {
	defer func() { s.operands = s.operands[:0] }()

	if len(s.operands) < 6 {
		return
	}
	var m matrix
	for i, raw := range s.operands[len(s.operands)-6:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}
		m[i] = v
	}
	s.ctm = m.mul(s.ctm)
}

func (s *walkState) recordPlacement() {
	defer func() { s.operands = s.operands[:0] }()

	if len(s.operands) == 0 {
		return
	}
	name := s.operands[len(s.operands)-1]
	if !strings.HasPrefix(name, "/") {
		return
	}
	s.placements = append(s.placements, Placement{
		Name: strings.TrimPrefix(name, "/"),
		X:    s.ctm[4],
		Y:    s.ctm[5],
	})
}

func isOperand(token string) bool {
	if strings.HasPrefix(token, "/") {
		return true
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return true
	}
	return false
}

// tokenize splits a content stream into whitespace-separated tokens after
// blanking string literals, so operator names inside text strings are never
// mistaken for drawing operators.
func tokenize(content string) []string {
	var b strings.Builder
	b.Grow(len(content))

	depth := 0
	escaped := false
	inHex := false
	for _, r := range content {
		switch {
		case inHex:
			if r == '>' {
				inHex = false
			}
		case depth > 0:
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '(' {
				depth++
			} else if r == ')' {
				depth--
			}
		case r == '(':
			depth++
		case r == '<':
			inHex = true
		default:
			b.WriteRune(r)
		}
	}

	return strings.Fields(b.String())
}
