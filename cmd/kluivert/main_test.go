package main

import "testing"

func TestParseMode(t *testing.T) {
	cases := map[string]string{"1": "chat", " chat ": "chat", "CHAT": "chat", "2": "auto", "auto": "auto"}
	for in, want := range cases {
		got, ok := parseMode(in)
		if !ok || got != want {
			t.Fatalf("parseMode(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "3", "autonomous"} {
		if _, ok := parseMode(in); ok {
			t.Fatalf("parseMode(%q) should be rejected", in)
		}
	}
}
