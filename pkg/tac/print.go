package tac

import (
	"fmt"
	"sort"
	"strings"
)

// Pretty renders Program as readable TAC text, interleaving label lines at
// the instruction index they were recorded against — mirroring the
// reference implementation's pretty_tac_ir, which walks the instruction
// list and splices in any label whose recorded index matches.
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
		fmt.Fprintf(&b, "    %s\n", ins)
	}
	for _, label := range indexToLabel[len(p.Code)] {
		fmt.Fprintf(&b, "%s:\n", label)
	}
	return b.String()
}
