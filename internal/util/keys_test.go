package util

import "testing"

func TestEntryKeyNoCollisions(t *testing.T) {
	pairs := [][2]string{
		{"a:b", "c"},
		{"a", "b:c"},
		{"a", "b"},
		{"b", "a"},
		{"", "a:b"},
		{"secret/app", "token"},
		{"secret/other", "token"},
	}
	seen := make(map[string][2]string)
	for _, p := range pairs {
		k := EntryKey("ns", p[0], p[1])
		if prev, dup := seen[k]; dup {
			t.Fatalf("collision: %v and %v both map to %q", prev, p, k)
		}
		seen[k] = p
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	if EntryKey("a", "p", "k") == EntryKey("b", "p", "k") {
		t.Fatal("entry keys must differ across namespaces")
	}
	if PathKey("a", "p") == PathKey("b", "p") {
		t.Fatal("path keys must differ across namespaces")
	}
	if got := EntryKey("ns", "secret/app", "token"); got != "entry:ns:10:secret/app:token" {
		t.Fatalf("unexpected key %q", got)
	}
}
