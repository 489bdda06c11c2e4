package btree

import (
	"fmt"
	"strings"

	"pagetree/internal/page"
)

// CheckTree walks the whole tree and the leaf chain and reports every
// consistency problem it finds, joined into one string. An empty string
// means the tree is internally consistent.
func (t *Tree) CheckTree() string {
	meta := t.cache.Meta()
	var problems []string
	totalFromTree := 0

	var walk func(ptr page.Pointer, depth uint16, lowIncl, highExcl *uint32) (lowest, highest uint32, empty bool)
	walk = func(ptr page.Pointer, depth uint16, lowIncl, highExcl *uint32) (lowest, highest uint32, empty bool) {
		if depth == meta.Depth {
			leaf, err := t.cache.GetLeaf(ptr)
			if err != nil {
				problems = append(problems, fmt.Sprintf("leaf %d: %v", ptr, err))
				return 0, 0, true
			}
			totalFromTree += len(leaf.Records)
			if len(leaf.Records) == 0 {
				return 0, 0, true
			}
			for i := 1; i < len(leaf.Records); i++ {
				if leaf.Records[i-1].Key >= leaf.Records[i].Key {
					problems = append(problems, fmt.Sprintf("leaf %d: records not strictly ascending at index %d", ptr, i))
				}
			}
			lo := leaf.Records[0].Key
			hi := leaf.Records[len(leaf.Records)-1].Key
			if lowIncl != nil && lo < *lowIncl {
				problems = append(problems, fmt.Sprintf("leaf %d: lowest key %d violates lower bound %d", ptr, lo, *lowIncl))
			}
			if highExcl != nil && hi >= *highExcl {
				problems = append(problems, fmt.Sprintf("leaf %d: highest key %d violates upper bound %d", ptr, hi, *highExcl))
			}
			if meta.Depth > 1 && leaf.IsUnderfull() {
				problems = append(problems, fmt.Sprintf("leaf %d: underfull (%d records)", ptr, len(leaf.Records)))
			}
			return lo, hi, false
		}

		dir, err := t.cache.GetDirectory(ptr)
		if err != nil {
			problems = append(problems, fmt.Sprintf("directory %d: %v", ptr, err))
			return 0, 0, true
		}
		if depth > 0 && dir.IsUnderfull() {
			problems = append(problems, fmt.Sprintf("directory %d: underfull (%d keys)", ptr, len(dir.Keys)))
		}
		for i := 1; i < len(dir.Keys); i++ {
			if dir.Keys[i-1] >= dir.Keys[i] {
				problems = append(problems, fmt.Sprintf("directory %d: keys not strictly ascending at index %d", ptr, i))
			}
		}
		for i, k := range dir.Keys {
			if lowIncl != nil && k < *lowIncl {
				problems = append(problems, fmt.Sprintf("directory %d: key %d at index %d violates lower bound %d", ptr, k, i, *lowIncl))
			}
			if highExcl != nil && k >= *highExcl {
				problems = append(problems, fmt.Sprintf("directory %d: key %d at index %d violates upper bound %d", ptr, k, i, *highExcl))
			}
		}

		var lo, hi uint32
		sawAny := false
		for i, childPtr := range dir.Pointers {
			childLow, childHigh := lowIncl, highExcl
			if i > 0 {
				v := dir.Keys[i-1]
				childLow = &v
			}
			if i < len(dir.Keys) {
				v := dir.Keys[i]
				childHigh = &v
			}
			cLo, cHi, cEmpty := walk(childPtr, depth+1, childLow, childHigh)
			if !cEmpty {
				if !sawAny {
					lo = cLo
					sawAny = true
				}
				hi = cHi
			}
		}
		return lo, hi, !sawAny
	}

	walk(meta.Root, 0, nil, nil)

	chainCount := 0
	prev := page.Null
	cur := meta.DataHead
	for cur != page.Null {
		leaf, err := t.cache.GetLeaf(cur)
		if err != nil {
			problems = append(problems, fmt.Sprintf("chain: leaf %d: %v", cur, err))
			break
		}
		if leaf.Prev != prev {
			problems = append(problems, fmt.Sprintf("chain: leaf %d has prev %d, expected %d", cur, leaf.Prev, prev))
		}
		chainCount += len(leaf.Records)
		prev = cur
		if leaf.Next == page.Null && cur != meta.DataTail {
			problems = append(problems, fmt.Sprintf("chain: leaf %d is the last leaf but metadata data_tail is %d", cur, meta.DataTail))
		}
		cur = leaf.Next
	}
	if chainCount != totalFromTree {
		problems = append(problems, fmt.Sprintf("leaf chain holds %d records but tree descent found %d", chainCount, totalFromTree))
	}

	return strings.Join(problems, "; ")
}
