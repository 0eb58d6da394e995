package fingerprint

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/archiver/internal/apperr"
)

func TestDeriveKnownVectors(t *testing.T) {
	tests := []struct {
		title, author string
		want          string
	}{
		{"title", "author", "0x53210bedc165123c8d555e5a37ba5657595d14774dcb363db8218aeae8bc12c1"},
		{"", "", "0xe593d242df3e0514600eb1f171f40250f41c325c09fc009e7213cdfd5e2fa076"},
		{"ab", "c", "0xdd1dd4ec4d98dd246edd6c0a9debb6fddbea882dcf4597e5a8425032628279af"},
		{"a", "bc", "0x055626df15968a2a40546194708f939338afbd36dadf8b4ff917a40877d16689"},
	}
	for _, tc := range tests {
		got := Derive([]byte(tc.title), []byte(tc.author)).String()
		if got != tc.want {
			t.Errorf("Derive(%q, %q) = %s, want %s", tc.title, tc.author, got, tc.want)
		}
	}
}

func TestDeriveIgnoresASCIICase(t *testing.T) {
	base := Derive([]byte("title"), []byte("author"))
	for _, pair := range [][2]string{
		{"Title", "Author"},
		{"TITLE", "author"},
		{"tItLe", "AUTHOR"},
	} {
		if got := Derive([]byte(pair[0]), []byte(pair[1])); got != base {
			t.Errorf("Derive(%q, %q) differs from lower-case form", pair[0], pair[1])
		}
	}
}

func TestDeriveBoundary(t *testing.T) {
	if Derive([]byte("ab"), []byte("c")) == Derive([]byte("a"), []byte("bc")) {
		t.Fatal("boundary between title and author is not preserved")
	}
	if Derive([]byte("x"), []byte("")) == Derive([]byte(""), []byte("x")) {
		t.Fatal("empty title and empty author must not collide")
	}
}

func TestNormalize(t *testing.T) {
	in := []byte("Déjà VU 42")
	got := Normalize(in)
	if string(got) != "déjà vu 42" {
		t.Errorf("Normalize = %q", got)
	}
	if string(in) != "Déjà VU 42" {
		t.Error("Normalize must not modify its input")
	}

	// Non-ASCII upper-case stays as is.
	if string(Normalize([]byte("É"))) != "É" {
		t.Error("non-ASCII bytes must pass through unchanged")
	}
}

func TestPreImage(t *testing.T) {
	got := string(preImage([]byte("ab"), []byte("c")))
	if got != "[97, 98][99]" {
		t.Errorf("preImage = %q", got)
	}
	if got := string(preImage(nil, nil)); got != "[][]" {
		t.Errorf("empty preImage = %q", got)
	}
}

func TestParse(t *testing.T) {
	fp := Derive([]byte("title"), []byte("author"))

	for _, s := range []string{fp.String(), fp.Hex(), "0X" + fp.Hex()} {
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got != fp {
			t.Errorf("Parse(%q) = %s", s, got)
		}
	}

	for _, bad := range []string{"", "0x", "0x1234", fp.Hex() + "00", "zz" + fp.Hex()[2:]} {
		if _, err := Parse(bad); !errors.Is(err, apperr.ErrInvalidFingerprint) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidFingerprint", bad, err)
		}
	}
}

func TestJSONText(t *testing.T) {
	fp := Derive([]byte("title"), []byte("author"))
	data, err := json.Marshal(map[string]Fingerprint{"fp": fp})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"fp":"`+fp.String()+`"}` {
		t.Errorf("json = %s", data)
	}
	var back map[string]Fingerprint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["fp"] != fp {
		t.Error("text round trip changed the fingerprint")
	}
}
