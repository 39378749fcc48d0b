package planner

// Category is the group a tag belongs to.
type Category string

const (
	CategoryStats      Category = "stats"
	CategorySeries     Category = "series"
	CategoryAttributes Category = "attributes"
)

// StatTags are the primary-attribute tags.
var StatTags = []string{
	"민첩 증가", "힘 증가", "의지 증가", "지능 증가", "주요 능력치 증가", "체력 증가", "방어력 증가",
}

// SeriesTags are the special-effect family tags.
var SeriesTags = []string{
	"강공", "억제", "추격", "분쇄", "사기", "기예", "잔혹", "고통", "의료", "골절", "방출", "어둠", "흐름", "효율",
}

var tagCategories = buildTagCategories()

func buildTagCategories() map[string]Category {
	m := make(map[string]Category, len(StatTags)+len(SeriesTags))
	for _, t := range StatTags {
		m[t] = CategoryStats
	}
	for _, t := range SeriesTags {
		m[t] = CategorySeries
	}
	return m
}

// Classify returns the category of tag. Tags in neither fixed list are
// attributes.
func Classify(tag string) Category {
	if c, ok := tagCategories[tag]; ok {
		return c
	}
	return CategoryAttributes
}

// SeriesTag returns the first series tag in tags, or "".
func SeriesTag(tags []string) string {
	for _, t := range tags {
		if Classify(t) == CategorySeries {
			return t
		}
	}
	return ""
}

// RepresentativeStatTag returns the tag the planner counts for an item's
// main stat: the first stats tag, else the first attributes tag, else "".
func RepresentativeStatTag(tags []string) string {
	for _, t := range tags {
		if Classify(t) == CategoryStats {
			return t
		}
	}
	for _, t := range tags {
		if Classify(t) == CategoryAttributes {
			return t
		}
	}
	return ""
}

// GroupTags splits tags by category, preserving order.
func GroupTags(tags []string) map[Category][]string {
	groups := map[Category][]string{
		CategoryStats:      {},
		CategorySeries:     {},
		CategoryAttributes: {},
	}
	for _, t := range tags {
		c := Classify(t)
		groups[c] = append(groups[c], t)
	}
	return groups
}
