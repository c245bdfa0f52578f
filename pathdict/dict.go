// Package pathdict stores a set of path strings compactly and maps each to a
// dense integer key.
//
// Keys are ranks in byte order. Strings are front-coded in fixed-size buckets:
// the first string of a bucket is kept whole, every following one as the
// length of the prefix it shares with its predecessor plus the remaining
// suffix. Paths through a grammar share long prefixes (every path starts with
// a start rule), so this stays close to the size of the distinct suffixes.
package pathdict

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/teranos/reductionist/errors"
)

// BucketSize is the number of strings per front-coded bucket
const BucketSize = 16

// Entry is a path string with its key
type Entry struct {
	Key  int
	Path string
}

// Dictionary is an immutable front-coded string set
type Dictionary struct {
	count int
	heads []string // first string of each bucket
	tails [][]byte // (uvarint shared, uvarint len, suffix) for the rest of each bucket
}

// Build de-duplicates and sorts paths and front-codes them
func Build(paths []string) *Dictionary {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	unique := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			unique = append(unique, p)
		}
	}

	d := &Dictionary{count: len(unique)}
	for start := 0; start < len(unique); start += BucketSize {
		end := min(start+BucketSize, len(unique))
		d.heads = append(d.heads, unique[start])

		var tail []byte
		prev := unique[start]
		for _, s := range unique[start+1 : end] {
			shared := commonPrefix(prev, s)
			tail = binary.AppendUvarint(tail, uint64(shared))
			tail = binary.AppendUvarint(tail, uint64(len(s)-shared))
			tail = append(tail, s[shared:]...)
			prev = s
		}
		d.tails = append(d.tails, tail)
	}
	return d
}

// Len returns the number of distinct strings
func (d *Dictionary) Len() int {
	return d.count
}

// Key returns the key of an exact string
func (d *Dictionary) Key(s string) (int, bool) {
	if d.count == 0 {
		return 0, false
	}
	// Last bucket whose head is <= s
	b := sort.Search(len(d.heads), func(i int) bool { return d.heads[i] > s }) - 1
	if b < 0 {
		return 0, false
	}

	found, key := false, 0
	d.scanBucket(b, func(k int, candidate string) bool {
		if candidate == s {
			found, key = true, k
			return false
		}
		return candidate < s
	})
	return key, found
}

// String returns the string stored under key
func (d *Dictionary) String(key int) (string, error) {
	if key < 0 || key >= d.count {
		return "", errors.NewNotFoundError("no path with key %d (dictionary holds %d)", key, d.count)
	}

	var out string
	d.scanBucket(key/BucketSize, func(k int, s string) bool {
		if k == key {
			out = s
			return false
		}
		return true
	})
	return out, nil
}

// Prefix returns every entry whose string starts with p, in key order
func (d *Dictionary) Prefix(p string) []Entry {
	var out []Entry
	if d.count == 0 {
		return out
	}

	// The first match lives in the last bucket whose head is < p, or in a later one
	b := max(sort.Search(len(d.heads), func(i int) bool { return d.heads[i] >= p })-1, 0)
	for ; b < len(d.heads); b++ {
		done := false
		d.scanBucket(b, func(k int, s string) bool {
			if strings.HasPrefix(s, p) {
				out = append(out, Entry{Key: k, Path: s})
				return true
			}
			if s > p {
				done = true
				return false
			}
			return true
		})
		if done {
			break
		}
	}
	return out
}

// Each calls fn for every entry in key order until fn returns false
func (d *Dictionary) Each(fn func(Entry) bool) {
	for b := range d.heads {
		stopped := false
		d.scanBucket(b, func(k int, s string) bool {
			if !fn(Entry{Key: k, Path: s}) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
	}
}

// Entries returns every entry in key order
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, 0, d.count)
	d.Each(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// scanBucket decodes bucket b in order, calling fn until it returns false
func (d *Dictionary) scanBucket(b int, fn func(key int, s string) bool) {
	key := b * BucketSize
	cur := []byte(d.heads[b])
	if !fn(key, string(cur)) {
		return
	}

	tail := d.tails[b]
	for len(tail) > 0 {
		shared, n := binary.Uvarint(tail)
		tail = tail[n:]
		length, n := binary.Uvarint(tail)
		tail = tail[n:]

		cur = append(cur[:shared], tail[:length]...)
		tail = tail[length:]
		key++
		if !fn(key, string(cur)) {
			return
		}
	}
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
