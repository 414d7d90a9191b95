package detect

import "sort"

// FilterMode selects how raw detections are post-processed.
type FilterMode string

const (
	// FilterMultiPosition keeps up to maxPerLabel spatially distinct
	// detections per label, ranked by confidence.
	FilterMultiPosition FilterMode = "multi_position"

	// FilterNone passes detections through untouched, keeping whatever
	// position ranks the detector assigned.
	FilterNone FilterMode = "none"
)

// Filter de-duplicates and ranks raw detections. Within each label,
// detections are taken in descending confidence order and accepted greedily
// while their IOU against every already-accepted detection of that label
// stays at or below iouThreshold; PositionRank records the acceptance order.
// Acceptance stops at maxPerLabel per label. The result is sorted by
// (label, rank). Empty input yields empty output.
func Filter(detections []Detection, mode FilterMode, maxPerLabel int, iouThreshold float64) []Detection {
	if mode == FilterNone {
		out := make([]Detection, len(detections))
		copy(out, detections)
		return out
	}

	if len(detections) == 0 {
		return []Detection{}
	}

	groups := make(map[string][]Detection)
	for _, d := range detections {
		groups[d.Label] = append(groups[d.Label], d)
	}

	out := make([]Detection, 0, len(detections))
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Confidence > group[j].Confidence
		})

		selected := group[:0:0]
		for _, det := range group {
			if len(selected) >= maxPerLabel {
				break
			}

			duplicate := false
			for _, s := range selected {
				if IOU(det.Box, s.Box) > iouThreshold {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}

			det.PositionRank = len(selected)
			selected = append(selected, det)
		}
		out = append(out, selected...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].PositionRank < out[j].PositionRank
	})
	return out
}

// CountByLabel tallies detections per label.
func CountByLabel(detections []Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range detections {
		counts[d.Label]++
	}
	return counts
}
