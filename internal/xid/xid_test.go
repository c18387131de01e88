package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("prd")
	b := New("prd")
	if !strings.HasPrefix(a, "prd-") {
		t.Fatalf("expected prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
	if strings.Contains(New(""), "-") == false {
		t.Fatalf("expected bare uuid to contain dashes")
	}
}
