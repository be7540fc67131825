package preproc

import (
	"strconv"
	"strings"

	"vc/internal/lexer"
)

// ppTokens splits s into preprocessing tokens using the same low-level
// scanner the final lexer uses — real two-phase preprocessors commonly
// share one tokenizer between the pp-token pass and the token pass, since
// identifier/number/string/punctuation boundaries are identical at both
// stages; only macro semantics differ.
func ppTokens(s string) []lexer.Token {
	// The leading space keeps a '#' at the start of s (a stringize or paste
	// operator in a macro body) from being read as a line marker.
	toks, _ := lexer.Tokenize(" "+s, "<macro>")
	if len(toks) > 0 && toks[len(toks)-1].Kind == lexer.EOF {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func joinTokens(toks []lexer.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Lexeme
	}
	return strings.Join(parts, " ")
}

// expandText macro-expands one logical line of text. painted tracks macros
// currently being expanded on the containing expansion stack so direct
// self-recursion is blocked by leaving the painted name verbatim
// (spec.md §4.1's "painted macro").
func (c *Context) expandText(text string, macros map[string]*Macro, painted map[string]bool) string {
	toks := ppTokens(text)
	out := c.expandTokens(toks, macros, painted)
	return joinTokens(out)
}

func (c *Context) expandTokens(toks []lexer.Token, macros map[string]*Macro, painted map[string]bool) []lexer.Token {
	var out []lexer.Token
	i := 0
	for i < len(toks) {
		tok := toks[i]
		if tok.Kind != lexer.IDENT && tok.Kind != lexer.KEYWORD {
			out = append(out, tok)
			i++
			continue
		}
		if painted[tok.Lexeme] {
			out = append(out, tok)
			i++
			continue
		}
		if lit, ok := c.builtinValue(tok.Lexeme); ok {
			out = append(out, lexer.Token{Kind: lit.Kind, Lexeme: lit.Lexeme, File: tok.File, Line: tok.Line, Column: tok.Column})
			i++
			continue
		}
		m, ok := macros[tok.Lexeme]
		if !ok {
			out = append(out, tok)
			i++
			continue
		}
		if !m.IsFunction {
			painted[tok.Lexeme] = true
			body := c.expandTokens(ppTokens(m.Value), macros, painted)
			delete(painted, tok.Lexeme)
			out = append(out, body...)
			i++
			continue
		}
		// Function-like macro: only invoked if immediately followed by '('.
		j := i + 1
		if j >= len(toks) || toks[j].Lexeme != "(" {
			out = append(out, tok)
			i++
			continue
		}
		args, end := splitArgs(toks, j+1)
		rawArgs := make([]string, len(args))
		expArgs := make([][]lexer.Token, len(args))
		for k, a := range args {
			rawArgs[k] = joinTokens(a)
			expArgs[k] = c.expandTokens(a, macros, painted)
		}
		replaced := substitute(m, rawArgs, expArgs)
		painted[m.Name] = true
		body := c.expandTokens(replaced, macros, painted)
		delete(painted, m.Name)
		out = append(out, body...)
		i = end + 1
	}
	return out
}

// splitArgs scans tokens starting just past the macro's opening '(' and
// returns the comma-separated, paren-balanced argument token lists plus the
// index of the matching ')'. Because it operates on already-scanned
// pp-tokens, a comma or paren inside a string/char literal (a single
// STRING_LIT/CHAR_LIT token) can never split an argument, satisfying the
// "parenthesized argument splitting tracks string/char literal state"
// requirement of spec.md §4.1 for free.
func splitArgs(toks []lexer.Token, start int) ([][]lexer.Token, int) {
	var args [][]lexer.Token
	var cur []lexer.Token
	depth := 0
	i := start
	for ; i < len(toks); i++ {
		t := toks[i]
		switch t.Lexeme {
		case "(":
			depth++
			cur = append(cur, t)
		case ")":
			if depth == 0 {
				args = append(args, cur)
				return args, i
			}
			depth--
			cur = append(cur, t)
		case ",":
			if depth == 0 {
				args = append(args, cur)
				cur = nil
			} else {
				cur = append(cur, t)
			}
		default:
			cur = append(cur, t)
		}
	}
	args = append(args, cur)
	return args, i - 1
}

// substitute implements stringization (#param), token pasting (A##B), and
// parameter replacement by the pre-expanded argument (spec.md §4.1).
func substitute(m *Macro, rawArgs []string, expArgs [][]lexer.Token) []lexer.Token {
	paramIndex := func(name string) int {
		for i, p := range m.Params {
			if p == name {
				return i
			}
		}
		if m.IsVariadic && name == "__VA_ARGS__" {
			return len(m.Params) - 1
		}
		return -1
	}
	argFor := func(idx int, raw bool) string {
		if idx < 0 {
			return ""
		}
		if m.IsVariadic && idx == len(m.Params)-1 {
			// __VA_ARGS__ joins every argument from this position on.
			var parts []string
			for k := idx; k < len(rawArgs); k++ {
				if raw {
					parts = append(parts, rawArgs[k])
				} else {
					parts = append(parts, joinTokens(expArgs[k]))
				}
			}
			return strings.Join(parts, ", ")
		}
		if idx >= len(rawArgs) {
			return ""
		}
		if raw {
			return rawArgs[idx]
		}
		return joinTokens(expArgs[idx])
	}

	body := ppTokens(m.Value)
	var out []lexer.Token
	for i := 0; i < len(body); i++ {
		t := body[i]
		switch {
		case t.Lexeme == "#" && i+1 < len(body) && paramIndex(body[i+1].Lexeme) >= 0:
			raw := argFor(paramIndex(body[i+1].Lexeme), true)
			out = append(out, lexer.Token{Kind: lexer.STRING_LIT, Lexeme: stringize(raw)})
			i++
		case t.Lexeme == "##":
			if len(out) == 0 || i+1 >= len(body) {
				continue
			}
			next := body[i+1]
			nextText := next.Lexeme
			if idx := paramIndex(next.Lexeme); idx >= 0 {
				nextText = argFor(idx, true)
			}
			last := out[len(out)-1]
			pasted := last.Lexeme + nextText
			out[len(out)-1] = lexer.Token{Kind: classify(pasted), Lexeme: pasted, File: last.File, Line: last.Line, Column: last.Column}
			i++
		case paramIndex(t.Lexeme) >= 0:
			sub := argFor(paramIndex(t.Lexeme), false)
			out = append(out, ppTokens(sub)...)
		default:
			out = append(out, t)
		}
	}
	return out
}

func classify(s string) lexer.Kind {
	if s == "" {
		return lexer.UNKNOWN
	}
	if s[0] >= '0' && s[0] <= '9' {
		return lexer.NUMBER
	}
	return lexer.IDENT
}

// stringize turns the raw spelling of a macro argument into the body of a
// C string literal, escaping backslashes and quotes (spec.md §4.1).
func stringize(raw string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// builtinValue resolves the built-in macros of spec.md §4.1 that the
// preprocessor itself can compute; __func__ is deliberately left
// unexpanded here and resolved later by internal/semantic, which knows the
// enclosing function's name.
func (c *Context) builtinValue(name string) (lexer.Token, bool) {
	switch name {
	case "__FILE__":
		return lexer.Token{Kind: lexer.STRING_LIT, Lexeme: strconv.Quote(c.CurrentFile)}, true
	case "__LINE__":
		return lexer.Token{Kind: lexer.NUMBER, Lexeme: strconv.Itoa(c.CurrentLine + c.LineDelta)}, true
	case "__COUNTER__":
		v := c.Counter
		c.Counter++
		return lexer.Token{Kind: lexer.NUMBER, Lexeme: strconv.Itoa(v)}, true
	case "__BASE_FILE__":
		return lexer.Token{Kind: lexer.STRING_LIT, Lexeme: strconv.Quote(c.BaseFile)}, true
	case "__INCLUDE_LEVEL__":
		return lexer.Token{Kind: lexer.NUMBER, Lexeme: strconv.Itoa(len(c.includeStack))}, true
	}
	return lexer.Token{}, false
}
