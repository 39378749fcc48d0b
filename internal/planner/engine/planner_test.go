package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

func item(name string, rarity int, location string, tags ...string) planner.Item {
	return planner.Item{Name: name, Rarity: rarity, Location: location, Tags: tags}
}

func target(it planner.Item) planner.Candidate {
	return planner.Candidate{Item: it, Weight: 5, IsTarget: true}
}

func incidental(it planner.Item) planner.Candidate {
	return planner.Candidate{Item: it, Weight: 1}
}

func planByName(t *testing.T, plans []planner.LocationPlan, name string) planner.LocationPlan {
	t.Helper()
	for _, p := range plans {
		if p.LocationName == name {
			return p
		}
	}
	require.Failf(t, "plan not found", "location %s", name)
	return planner.LocationPlan{}
}

func TestSplitLocations(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{planner.NoLocationInfo, nil},
		{"Loc1", []string{"Loc1"}},
		{"Loc1, Loc2", []string{"Loc1", "Loc2"}},
		{" Loc1 ,, Loc2 ,Loc1", []string{"Loc1", "Loc2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLocations(tt.in), "input %q", tt.in)
	}
}

func TestBuildCandidates(t *testing.T) {
	items := []planner.Item{
		item("A", 6, "Loc1", "힘 증가"),
		item("B", 6, "Loc1", "민첩 증가"),
		item("C", 6, "Loc1", "지능 증가"),
		item("D", 5, "Loc1", "의지 증가"),
		item("E", 5, "Loc2", "힘 증가"),
	}

	t.Run("no targets means no candidates", func(t *testing.T) {
		assert.Nil(t, BuildCandidates(items, planner.Ownership{}, DefaultWeights()))
		assert.Nil(t, BuildCandidates(items, planner.Ownership{"A": planner.StatusOwned}, DefaultWeights()))
	})

	t.Run("targets and incidental rarity items", func(t *testing.T) {
		own := planner.Ownership{"E": planner.StatusTarget, "B": planner.StatusOwned}
		got := BuildCandidates(items, own, DefaultWeights())

		names := map[string]planner.Candidate{}
		for _, c := range got {
			names[c.Item.Name] = c
		}
		require.Len(t, got, 3)
		assert.Equal(t, planner.Candidate{Item: items[4], Weight: 5, IsTarget: true}, names["E"])
		assert.Equal(t, 1, names["A"].Weight)
		assert.False(t, names["A"].IsTarget)
		assert.Contains(t, names, "C")
		assert.NotContains(t, names, "B", "owned items are never candidates")
		assert.NotContains(t, names, "D", "unflagged rarity 5 items are not incidental")
	})
}

func TestPlan_EmptyInput(t *testing.T) {
	assert.Nil(t, Plan(nil, ""))
	assert.Nil(t, Plan([]planner.Candidate{target(item("A", 6, planner.NoLocationInfo, "강공"))}, ""))
}

func TestPlan_ItemCountsInEveryLocation(t *testing.T) {
	plans := Plan([]planner.Candidate{
		target(item("A", 6, "Loc1, Loc2", "힘 증가", "강공")),
		target(item("B", 6, "Loc2", "민첩 증가", "억제")),
	}, "")
	require.Len(t, plans, 2)

	loc1 := planByName(t, plans, "Loc1")
	loc2 := planByName(t, plans, "Loc2")
	assert.True(t, loc1.HasMember("A"))
	assert.True(t, loc2.HasMember("A"))
	assert.Equal(t, 1, loc1.Count)
	assert.Equal(t, 5, loc1.Score)
	assert.Equal(t, 2, loc2.Count)
	assert.Equal(t, 10, loc2.Score)

	assert.Equal(t, "Loc2", plans[0].LocationName, "higher score first")
}

func TestPlan_LocationTieBreakByName(t *testing.T) {
	plans := Plan([]planner.Candidate{
		target(item("A", 6, "Zeta", "힘 증가")),
		target(item("B", 6, "Alpha", "힘 증가")),
		target(item("C", 6, "Mid", "힘 증가")),
	}, "")
	require.Len(t, plans, 3)
	assert.Equal(t, "Alpha", plans[0].LocationName)
	assert.Equal(t, "Mid", plans[1].LocationName)
	assert.Equal(t, "Zeta", plans[2].LocationName)
}

func TestPlan_WeightedCountsAndEfficiency(t *testing.T) {
	plans := Plan([]planner.Candidate{
		target(item("A", 6, "Loc1", "힘 증가")),
		target(item("B", 6, "Loc1", "힘 증가")),
		target(item("C", 6, "Loc2", "힘 증가")),
		incidental(item("X", 6, "Loc2", "힘 증가")),
		incidental(item("Y", 6, "Loc2", "힘 증가")),
	}, "")
	require.Len(t, plans, 2)

	loc1 := planByName(t, plans, "Loc1")
	assert.Equal(t, 10, loc1.Score)
	assert.Equal(t, 2, loc1.TargetCount)
	assert.Equal(t, 0, loc1.NormalCount)
	assert.Equal(t, 67, loc1.TargetEfficiency)

	loc2 := planByName(t, plans, "Loc2")
	assert.Equal(t, 7, loc2.Score)
	assert.Equal(t, 1, loc2.TargetCount)
	assert.Equal(t, 2, loc2.NormalCount)
	assert.Equal(t, 3, loc2.Count)
	assert.Equal(t, 33, loc2.TargetEfficiency)
}

func TestPlan_UnflaggedInputDefaultsWeightAndEfficiency(t *testing.T) {
	plans := Plan([]planner.Candidate{
		{Item: item("A", 6, "Loc1", "힘 증가")},
		{Item: item("B", 6, "Loc2", "힘 증가")},
	}, "")
	require.Len(t, plans, 2)
	assert.Equal(t, 1, plans[0].Score)
	assert.Equal(t, 50, plans[0].TargetEfficiency)
}

func TestPlan_RecommendStats(t *testing.T) {
	plans := Plan([]planner.Candidate{
		target(item("A", 6, "Loc1", "힘 증가", "강공")),
		target(item("B", 6, "Loc1", "힘 증가")),
		target(item("C", 6, "Loc1", "지능 증가")),
		target(item("D", 6, "Loc1", "민첩 증가")),
		// No stats tag: the first attributes tag stands in.
		target(item("E", 6, "Loc1", "억제", "공격력 증가")),
		// Only a series tag: contributes no stat.
		target(item("F", 6, "Loc1", "강공")),
	}, "")
	require.Len(t, plans, 1)

	// 힘 증가 has 10; the rest tie at 5 and are ordered by name.
	assert.Equal(t, []string{"힘 증가", "공격력 증가", "민첩 증가"}, plans[0].RecommendStats)
}

func TestPlan_SeriesRecommendation(t *testing.T) {
	candidates := []planner.Candidate{
		target(item("A", 6, "Loc1", "힘 증가", "강공")),
		target(item("B", 6, "Loc1", "힘 증가", "강공")),
		target(item("C", 6, "Loc1", "지능 증가", "억제")),
		target(item("D", 6, "Loc2", "지능 증가", "추격")),
	}

	t.Run("majority without priority", func(t *testing.T) {
		plans := Plan(candidates, "")
		assert.Equal(t, "강공", planByName(t, plans, "Loc1").RecommendSeries)
	})

	t.Run("priority member overrides", func(t *testing.T) {
		plans := Plan(candidates, "C")
		loc1 := planByName(t, plans, "Loc1")
		assert.Equal(t, "억제", loc1.RecommendSeries)
		assert.Equal(t, "C", loc1.Items[0].Item.Name, "priority member is listed first")
		assert.True(t, loc1.Items[0].IsPriority)

		// The priority item is not at Loc2, so Loc2 keeps its own series.
		assert.Equal(t, "추격", planByName(t, plans, "Loc2").RecommendSeries)
	})

	t.Run("priority without series clears it", func(t *testing.T) {
		plans := Plan(append(candidates, target(item("E", 6, "Loc1", "힘 증가"))), "E")
		assert.Equal(t, "", planByName(t, plans, "Loc1").RecommendSeries)
	})

	t.Run("series tie broken by name", func(t *testing.T) {
		plans := Plan([]planner.Candidate{
			target(item("A", 6, "Loc1", "추격")),
			target(item("B", 6, "Loc1", "강공")),
		}, "")
		assert.Equal(t, "강공", plans[0].RecommendSeries)
	})

	t.Run("no series at all", func(t *testing.T) {
		plans := Plan([]planner.Candidate{target(item("A", 6, "Loc1", "힘 증가"))}, "")
		assert.Equal(t, "", plans[0].RecommendSeries)
	})
}

func TestPlan_MemberOrder(t *testing.T) {
	plans := Plan([]planner.Candidate{
		incidental(item("Aa", 6, "Loc1", "힘 증가")),
		target(item("Zz", 6, "Loc1", "힘 증가")),
		target(item("Mm", 6, "Loc1", "힘 증가")),
	}, "")
	require.Len(t, plans, 1)

	var names []string
	for _, m := range plans[0].Items {
		names = append(names, m.Item.Name)
	}
	assert.Equal(t, []string{"Mm", "Zz", "Aa"}, names)
}

func TestMatchScore(t *testing.T) {
	plan := planner.LocationPlan{
		RecommendStats:  []string{"힘 증가", "민첩 증가"},
		RecommendSeries: "강공",
	}

	assert.Equal(t, 2, MatchScore(item("A", 6, "", "힘 증가", "강공"), plan))
	assert.Equal(t, 1, MatchScore(item("B", 6, "", "민첩 증가", "억제"), plan))
	assert.Equal(t, 1, MatchScore(item("C", 6, "", "지능 증가", "강공"), plan))
	assert.Equal(t, 0, MatchScore(item("D", 6, "", "지능 증가"), plan))

	noSeries := planner.LocationPlan{RecommendStats: []string{"힘 증가"}}
	assert.Equal(t, 1, MatchScore(item("E", 6, "", "힘 증가"), noSeries),
		"an item without a series tag never earns the series point")
}

func TestMatchScore_Bounds(t *testing.T) {
	candidates := []planner.Candidate{
		target(item("A", 6, "Loc1, Loc2", "힘 증가", "강공", "공격력 증가")),
		target(item("B", 6, "Loc1", "민첩 증가", "억제")),
		target(item("C", 6, "Loc2", "치명타 확률 증가")),
		incidental(item("D", 6, "Loc2", "지능 증가", "추격", "힘 증가")),
		target(item("E", 6, "Loc3")),
	}
	for _, priority := range []string{"", "A", "B", "E"} {
		plans := Plan(candidates, priority)
		for _, p := range plans {
			for _, c := range candidates {
				score := MatchScore(c.Item, p)
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 2)
			}
			for _, m := range p.Items {
				assert.Equal(t, MatchScore(m.Item, p), m.MatchScore)
			}
			assert.LessOrEqual(t, len(p.RecommendStats), 3)
		}
	}
}
