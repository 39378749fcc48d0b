package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// maxRecommendedStats caps LocationPlan.RecommendStats.
const maxRecommendedStats = 3

// Weights configures how candidates are weighted by the farming planner.
type Weights struct {
	// Target is the weight of items the player flagged as wanted.
	Target int
	// Normal is the weight of incidental items.
	Normal int
	// IncidentalRarity is the rarity at which an unflagged item becomes
	// an incidental candidate.
	IncidentalRarity int
}

// DefaultWeights returns the standard planner weights.
func DefaultWeights() Weights {
	return Weights{Target: 5, Normal: 1, IncidentalRarity: 6}
}

// BuildCandidates selects the planner input from the catalog.
//
// Items with StatusTarget become weighted targets. Unowned, unflagged
// items of the incidental rarity join with the normal weight. Without
// any target there are no candidates.
func BuildCandidates(items []planner.Item, ownership planner.Ownership, w Weights) []planner.Candidate {
	var candidates []planner.Candidate
	hasTarget := false
	for _, it := range items {
		switch ownership.Get(it.Name) {
		case planner.StatusTarget:
			hasTarget = true
			candidates = append(candidates, planner.Candidate{Item: it, Weight: w.Target, IsTarget: true})
		case planner.StatusNone:
			if it.Rarity == w.IncidentalRarity {
				candidates = append(candidates, planner.Candidate{Item: it, Weight: w.Normal})
			}
		}
	}
	if !hasTarget {
		return nil
	}
	return candidates
}

// SplitLocations parses an item's location field into location names.
// The no-info sentinel and empty fields yield nothing.
func SplitLocations(location string) []string {
	location = strings.TrimSpace(location)
	if location == "" || location == planner.NoLocationInfo {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(location, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == planner.NoLocationInfo || seen[part] {
			continue
		}
		seen[part] = true
		names = append(names, part)
	}
	return names
}

type locationGroup struct {
	name        string
	members     []planner.Candidate
	score       int
	targetCount int
	normalCount int
}

// Plan ranks farming locations for candidates. An item with several
// locations counts toward each of them. The result is nil when no
// candidate has a known location.
//
// Locations are ordered by score descending, then name. Recommended stat
// and series ties go to the tag that sorts first. When priority names a
// member of a location, that item's series tag is the location's
// recommended series.
func Plan(candidates []planner.Candidate, priority string) []planner.LocationPlan {
	if len(candidates) == 0 {
		return nil
	}

	totalTargets := 0
	for _, c := range candidates {
		if c.IsTarget {
			totalTargets++
		}
	}

	groups := make(map[string]*locationGroup)
	for _, c := range candidates {
		if c.Weight <= 0 {
			c.Weight = 1
		}
		for _, loc := range SplitLocations(c.Item.Location) {
			g, ok := groups[loc]
			if !ok {
				g = &locationGroup{name: loc}
				groups[loc] = g
			}
			g.members = append(g.members, c)
			g.score += c.Weight
			if c.IsTarget {
				g.targetCount++
			} else {
				g.normalCount++
			}
		}
	}
	if len(groups) == 0 {
		return nil
	}

	ordered := make([]*locationGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].name < ordered[j].name
	})

	plans := make([]planner.LocationPlan, 0, len(ordered))
	for _, g := range ordered {
		plans = append(plans, buildLocationPlan(g, priority, totalTargets, len(candidates)))
	}
	return plans
}

func buildLocationPlan(g *locationGroup, priority string, totalTargets, totalCandidates int) planner.LocationPlan {
	statWeights := make(map[string]int)
	seriesWeights := make(map[string]int)
	var priorityMember *planner.Candidate

	for i, m := range g.members {
		if tag := planner.RepresentativeStatTag(m.Item.Tags); tag != "" {
			statWeights[tag] += m.Weight
		}
		if tag := planner.SeriesTag(m.Item.Tags); tag != "" {
			seriesWeights[tag] += m.Weight
		}
		if priority != "" && m.Item.Name == priority {
			priorityMember = &g.members[i]
		}
	}

	stats := rankTags(statWeights)
	if len(stats) > maxRecommendedStats {
		stats = stats[:maxRecommendedStats]
	}

	var series string
	if priorityMember != nil {
		series = planner.SeriesTag(priorityMember.Item.Tags)
	} else if ranked := rankTags(seriesWeights); len(ranked) > 0 {
		series = ranked[0]
	}

	plan := planner.LocationPlan{
		LocationName:    g.name,
		Score:           g.score,
		Count:           len(g.members),
		TargetCount:     g.targetCount,
		NormalCount:     g.normalCount,
		RecommendStats:  stats,
		RecommendSeries: series,
	}

	// Unflagged input is treated as if every candidate was requested.
	if totalTargets > 0 {
		plan.TargetEfficiency = percent(g.targetCount, totalTargets)
	} else {
		plan.TargetEfficiency = percent(len(g.members), totalCandidates)
	}

	plan.Items = make([]planner.PlanMember, 0, len(g.members))
	for _, m := range g.members {
		plan.Items = append(plan.Items, planner.PlanMember{
			Item:       m.Item,
			Weight:     m.Weight,
			IsTarget:   m.IsTarget,
			IsPriority: priority != "" && m.Item.Name == priority,
		})
	}
	for i := range plan.Items {
		plan.Items[i].MatchScore = MatchScore(plan.Items[i].Item, plan)
	}
	sort.SliceStable(plan.Items, func(i, j int) bool {
		a, b := plan.Items[i], plan.Items[j]
		if a.IsPriority != b.IsPriority {
			return a.IsPriority
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Item.Name < b.Item.Name
	})

	return plan
}

// rankTags orders tags by accumulated weight descending, then name.
func rankTags(weights map[string]int) []string {
	tags := make([]string, 0, len(weights))
	for t := range weights {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if weights[tags[i]] != weights[tags[j]] {
			return weights[tags[i]] > weights[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// MatchScore rates how well item fits plan: one point for carrying one of
// the recommended stats, one point when its series tag is the recommended
// series. An item without a series tag never earns the series point.
func MatchScore(item planner.Item, plan planner.LocationPlan) int {
	score := 0
	for _, t := range item.Tags {
		if containsString(plan.RecommendStats, t) {
			score++
			break
		}
	}
	if series := planner.SeriesTag(item.Tags); series != "" && series == plan.RecommendSeries {
		score++
	}
	return score
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
