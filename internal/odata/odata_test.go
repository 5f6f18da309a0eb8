package odata

import "testing"

func TestGetByTitle_RoundTripsQuotes(t *testing.T) {
	for _, title := range []string{"Tasks", "Bob's list", "''", "a b"} {
		seg := GetByTitle(title)
		got, err := ParseGetByTitle(seg)
		if err != nil {
			t.Fatalf("ParseGetByTitle(%q): %v", seg, err)
		}
		if got != title {
			t.Fatalf("round trip: got %q want %q (seg=%s)", got, title, seg)
		}
	}
}

func TestParseGetByTitle_RejectsMalformed(t *testing.T) {
	for _, seg := range []string{"Tasks", "getbytitle(Tasks)", "getbytitle('a'b')", "getbytitle('x'"} {
		if _, err := ParseGetByTitle(seg); err == nil {
			t.Fatalf("expected error for %q", seg)
		}
	}
}

func TestParseErrorBody(t *testing.T) {
	code, msg, ok := ParseErrorBody([]byte(`{"odata.error":{"code":"-1, System.ArgumentException","message":{"lang":"en-US","value":"List 'x' does not exist"}}}`))
	if !ok || code != "-1, System.ArgumentException" || msg != "List 'x' does not exist" {
		t.Fatalf("unexpected parse: ok=%v code=%q msg=%q", ok, code, msg)
	}
	if _, _, ok := ParseErrorBody([]byte(`{"value":[]}`)); ok {
		t.Fatalf("expected ok=false for non-error payload")
	}
}

func TestEscapeSegment_KeepsQuotesAndParens(t *testing.T) {
	cases := map[string]string{
		"getbytitle('Tasks')":      "getbytitle('Tasks')",
		"getbytitle('O''Brien x')": "getbytitle('O''Brien%20x')",
		"getbytitle('a/b?c#d%e')":  "getbytitle('a%2Fb%3Fc%23d%25e')",
		"getbytitle('café')":       "getbytitle('caf%C3%A9')",
		"getbytitle('tab\there')":  "getbytitle('tab%09here')",
	}
	for in, want := range cases {
		if got := EscapeSegment(in); got != want {
			t.Errorf("EscapeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
