package engagement

// ThresholdKind selects which counter an achievement threshold applies to.
type ThresholdKind string

const (
	KindCumulative ThresholdKind = "cumulative"
	KindStreak     ThresholdKind = "streak"
)

type AchievementSpec struct {
	Threshold   int
	Kind        ThresholdKind
	Title       string
	Description string
	Icon        string
}

// catalog is fixed at build time. Titles double as the uniqueness key per
// member, so renaming an entry re-unlocks it.
var catalog = []AchievementSpec{
	{Threshold: 1, Kind: KindCumulative, Title: "First Check-In", Description: "Checked in for the first time", Icon: "🎉"},
	{Threshold: 10, Kind: KindCumulative, Title: "Regular", Description: "10 check-ins and counting", Icon: "💪"},
	{Threshold: 25, Kind: KindCumulative, Title: "Dedicated", Description: "25 check-ins logged", Icon: "🔥"},
	{Threshold: 50, Kind: KindCumulative, Title: "Half Century", Description: "50 check-ins logged", Icon: "🏅"},
	{Threshold: 100, Kind: KindCumulative, Title: "Century Club", Description: "100 check-ins logged", Icon: "🏆"},
	{Threshold: 3, Kind: KindStreak, Title: "On a Roll", Description: "3 days in a row", Icon: "⚡"},
	{Threshold: 7, Kind: KindStreak, Title: "Week Warrior", Description: "7 days in a row", Icon: "🗓️"},
	{Threshold: 14, Kind: KindStreak, Title: "Fortnight Fighter", Description: "14 days in a row", Icon: "🛡️"},
	{Threshold: 30, Kind: KindStreak, Title: "Iron Month", Description: "30 days in a row", Icon: "🦾"},
}

// Catalog returns the achievement definitions in evaluation order.
func Catalog() []AchievementSpec {
	return catalog
}
