package x86

import (
	"fmt"
	"sort"
	"strings"
)

// Pretty renders Program as GNU-assembler text: function labels flush
// left, everything else tab-indented — mirroring the reference
// implementation's pretty_x86, which splices labels into the instruction
// stream at the index they were recorded against.
func (p *Program) Pretty() string {
	indexToLabel := map[int][]string{}
	for label, idx := range p.LabelToIndex {
		indexToLabel[idx] = append(indexToLabel[idx], label)
	}
	for _, labels := range indexToLabel {
		sort.Strings(labels)
	}

	var b strings.Builder
	for i, ins := range p.Code {
		for _, label := range indexToLabel[i] {
			fmt.Fprintf(&b, "%s:\n", label)
		}
		fmt.Fprintf(&b, "\t%s\n", ins)
	}
	for _, label := range indexToLabel[len(p.Code)] {
		fmt.Fprintf(&b, "%s:\n", label)
	}
	return b.String()
}
