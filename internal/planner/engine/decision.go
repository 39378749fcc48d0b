package engine

import (
	"sort"
	"strings"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// DefaultTargetRarity is the rarity threshold when a request leaves it unset.
const DefaultTargetRarity = 6

// fullySpecifiedTags is the number of active tags at which a verdict is final.
const fullySpecifiedTags = 3

// FilterByTags returns the items carrying every tag in activeTags.
// An empty activeTags matches every item.
func FilterByTags(items []planner.Item, activeTags []string) []planner.Item {
	out := make([]planner.Item, 0, len(items))
	for _, it := range items {
		if hasAllTags(it, activeTags) {
			out = append(out, it)
		}
	}
	return out
}

func hasAllTags(it planner.Item, tags []string) bool {
	for _, t := range tags {
		if !it.HasTag(t) {
			return false
		}
	}
	return true
}

// FilterBySearch returns the items whose name contains query, ignoring case.
func FilterBySearch(items []planner.Item, query string) []planner.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := make([]planner.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), query) {
			out = append(out, it)
		}
	}
	return out
}

// Decide computes the keep/discard verdict for the current filter.
//
// The verdict is computed over the tag-filtered items. The search query
// only narrows the returned display list.
func Decide(items []planner.Item, ownership planner.Ownership, req planner.DecisionRequest) planner.Decision {
	active := distinctTags(req.ActiveTags)
	targetRarity := req.TargetRarity
	if targetRarity == 0 {
		targetRarity = DefaultTargetRarity
	}

	matched := FilterByTags(items, active)
	display := sortForDisplay(FilterBySearch(matched, req.SearchQuery))

	d := planner.Decision{
		MatchCount:  len(matched),
		Items:       display,
		ResultCount: len(display),
	}

	if len(active) == 0 && strings.TrimSpace(req.SearchQuery) == "" {
		d.Verdict, d.Reason = planner.VerdictPrompt, planner.ReasonNoFilter
		return d
	}
	if len(matched) == 0 {
		d.Verdict, d.Reason = planner.VerdictDiscard, planner.ReasonNoMatch
		return d
	}

	for _, it := range matched {
		if ownership.Get(it.Name) == planner.StatusOwned {
			continue
		}
		d.CandidateCount++
		if it.Rarity >= targetRarity {
			d.ValidCount++
		}
	}

	switch {
	case d.CandidateCount == 0:
		d.Verdict, d.Reason = planner.VerdictDiscard, planner.ReasonAllOwned
	case d.ValidCount == 0:
		d.Verdict, d.Reason = planner.VerdictDiscard, planner.ReasonBelowRarity
	case len(active) == fullySpecifiedTags:
		d.Verdict, d.Reason = planner.VerdictKeep, planner.ReasonFullySpecified
	default:
		d.Verdict, d.Reason = planner.VerdictExplore, planner.ReasonUndetermined
	}
	return d
}

func distinctTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// sortForDisplay orders items by rarity descending, then name.
func sortForDisplay(items []planner.Item) []planner.Item {
	out := make([]planner.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rarity != out[j].Rarity {
			return out[i].Rarity > out[j].Rarity
		}
		return out[i].Name < out[j].Name
	})
	return out
}
