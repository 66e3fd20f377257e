package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetInt(t *testing.T) {
	var out bytes.Buffer
	got, err := GetInt(rdr("42\n"), "Count?", &out)
	if err != nil || got != 42 {
		t.Fatalf("got %d, err=%v", got, err)
	}

	if _, err := GetInt(rdr("abc\n"), "Count?", &out); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
}

func TestGetYesNo(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      bool
		expected bool
	}{
		{name: "yes", input: "y\n", def: false, expected: true},
		{name: "full yes", input: "yes\n", def: false, expected: true},
		{name: "no", input: "n\n", def: true, expected: false},
		{name: "empty picks default true", input: "\n", def: true, expected: true},
		{name: "empty picks default false", input: "\n", def: false, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetYesNo(rdr(tt.input), "Sure?", tt.def, &out)
			if err != nil || got != tt.expected {
				t.Fatalf("got %v, err=%v", got, err)
			}
		})
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out, "Enter password")
	if err == nil {
		t.Fatal("expected error")
	}
}
