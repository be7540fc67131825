package lexer

import "testing"

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeBasicDecl(t *testing.T) {
	toks, err := Tokenize("int main(void) { return 0; }", "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []Kind{KEYWORD, IDENT, PUNCT, KEYWORD, PUNCT, PUNCT, KEYWORD, NUMBER, PUNCT, PUNCT, EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if toks[0].Lexeme != "int" || toks[1].Lexeme != "main" {
		t.Errorf("unexpected lexemes: %q %q", toks[0].Lexeme, toks[1].Lexeme)
	}
}

func TestTokenizeLineColumnTracking(t *testing.T) {
	toks, err := Tokenize("int a;\nint b;", "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	// "b" is the 5th real token: int(1) a(2) ;(3) int(4) b(5)
	var b Token
	for _, tok := range toks {
		if tok.Lexeme == "b" {
			b = tok
		}
	}
	if b.Line != 2 {
		t.Errorf("b.Line = %d, want 2", b.Line)
	}
}

func TestTokenizeComments(t *testing.T) {
	toks, err := Tokenize("/* skip */ int x; // trailing\n", "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	got := kinds(toks)
	want := []Kind{KEYWORD, IDENT, PUNCT, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeStringAndCharLiterals(t *testing.T) {
	toks, err := Tokenize(`"hello\n" 'a' L"wide"`, "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != STRING_LIT {
		t.Errorf("toks[0].Kind = %v, want STRING_LIT", toks[0].Kind)
	}
	if toks[1].Kind != CHAR_LIT {
		t.Errorf("toks[1].Kind = %v, want CHAR_LIT", toks[1].Kind)
	}
	if toks[2].Kind != WSTRING_LIT {
		t.Errorf("toks[2].Kind = %v, want WSTRING_LIT", toks[2].Kind)
	}
}

func TestTokenizeNumberSuffixes(t *testing.T) {
	toks, err := Tokenize("0x10UL 3.14f 5", "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	for i := 0; i < 3; i++ {
		if toks[i].Kind != NUMBER {
			t.Errorf("toks[%d].Kind = %v, want NUMBER", i, toks[i].Kind)
		}
	}
}

func TestTokenizeMultiCharPunctuators(t *testing.T) {
	toks, err := Tokenize("a += b; c->d; e << 1;", "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var lexemes []string
	for _, tok := range toks {
		if tok.Kind == PUNCT {
			lexemes = append(lexemes, tok.Lexeme)
		}
	}
	want := map[string]bool{"+=": true, "->": true, "<<": true}
	for _, l := range lexemes {
		if want[l] {
			delete(want, l)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing multi-char punctuators: %v in %v", want, lexemes)
	}
}
