package util

import (
	"strconv"
	"strings"
)

// EntryKey returns the storage key of one secret. The path is length-prefixed
// so ("a:b", "c") and ("a", "b:c") never share a key.
func EntryKey(ns, path, key string) string {
	var b strings.Builder
	b.Grow(len("entry:") + len(ns) + len(path) + len(key) + 24)
	b.WriteString("entry:")
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(path)))
	b.WriteByte(':')
	b.WriteString(path)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// PathKey returns the generation key of a path.
func PathKey(ns, path string) string {
	return "path:" + ns + ":" + path
}
