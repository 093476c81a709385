package memory

import (
	"sort"

	"github.com/GarryCodespace/Jarvis/core"
)

const (
	// referenceScanInputs is how many recent user inputs are checked for references.
	referenceScanInputs = 5

	// referenceLookback is how many events before a referring input are searched
	// for the model response it refers to.
	referenceLookback = 10
)

// resolveReferences finds earlier exchanges that recent user inputs refer to
// ("you said", "earlier", ...). For each referring input it returns the
// nearest preceding model event within referenceLookback events and the user
// event that prompted it. Results are deduplicated and chronological.
func resolveReferences(evs []core.Event, m *matcher) []core.Event {
	var userIdx []int
	for i, ev := range evs {
		if ev.Role == core.RoleUser && !ev.IsInitialization() {
			userIdx = append(userIdx, i)
		}
	}
	if len(userIdx) > referenceScanInputs {
		userIdx = userIdx[len(userIdx)-referenceScanInputs:]
	}

	selected := make(map[int]bool)
	for _, i := range userIdx {
		if !m.isReference(evs[i].Content) {
			continue
		}

		model := -1
		for j := i - 1; j >= 0 && j >= i-referenceLookback; j-- {
			if evs[j].Role == core.RoleModel {
				model = j
				break
			}
		}
		if model < 0 {
			continue
		}
		selected[model] = true

		for k := model - 1; k >= 0; k-- {
			if evs[k].Role == core.RoleUser {
				selected[k] = true
				break
			}
		}
	}

	idx := make([]int, 0, len(selected))
	for i := range selected {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]core.Event, 0, len(idx))
	seen := make(map[string]bool, len(idx))
	for _, i := range idx {
		if seen[evs[i].ID] {
			continue
		}
		seen[evs[i].ID] = true
		out = append(out, evs[i])
	}
	return out
}
