package password

import "testing"

func TestCheckReportsEveryUnmetRule(t *testing.T) {
	// Lowercase only: missing upper, digit, and symbol, all at once.
	unmet := Check("abcdefgh")
	want := []string{MsgNoUpper, MsgNoDigit, MsgNoSymbol}
	if len(unmet) != len(want) {
		t.Fatalf("unmet = %v, want %v", unmet, want)
	}
	for i := range want {
		if unmet[i] != want[i] {
			t.Fatalf("unmet[%d] = %q, want %q", i, unmet[i], want[i])
		}
	}
}

func TestCheckPassing(t *testing.T) {
	for _, pw := range []string{"Abcdef1!", "xY9#long-enough", "P@ssw0rd"} {
		if unmet := Check(pw); len(unmet) != 0 {
			t.Fatalf("Check(%q) = %v, want no unmet rules", pw, unmet)
		}
		if !OK(pw) {
			t.Fatalf("OK(%q) = false", pw)
		}
	}
}

func TestCheckEmpty(t *testing.T) {
	unmet := Check("")
	if len(unmet) != 1 || unmet[0] != MsgRequired {
		t.Fatalf("Check(\"\") = %v, want only the required message", unmet)
	}
}

func TestCheckLength(t *testing.T) {
	unmet := Check("Ab1!xyz") // 7 chars, all classes present
	if len(unmet) != 1 || unmet[0] != MsgTooShort {
		t.Fatalf("unmet = %v, want only the length message", unmet)
	}
}

func TestCheckSymbolSet(t *testing.T) {
	// Every character in Symbols must individually satisfy the rule.
	for _, r := range Symbols {
		pw := "Abcdef1" + string(r)
		if !OK(pw) {
			t.Fatalf("symbol %q not accepted", r)
		}
	}
	if OK("Abcdefg1") {
		t.Fatal("password without a symbol must fail")
	}
}

func TestMatch(t *testing.T) {
	if !Match("Abcdef1!", "Abcdef1!") {
		t.Fatal("identical entries must match")
	}
	if Match("Abcdef1!", "Abcdef1?") {
		t.Fatal("different entries must not match")
	}
}
