// Package plan holds the static investment tier catalog offered through the bot.
package plan

// Name is the platform-side plan all bot deposits book under.
const Name = "Telegram-9-Day-Plan"

// Tier is a fixed investment plan with contribution bounds.
type Tier struct {
	Name        string
	Min         float64
	Max         float64
	Description string
}

// Tiers is the catalog shown to users, selected by 1-based index. Immutable
// for the process lifetime.
var Tiers = []Tier{
	{Name: "Plan 1", Min: 2500, Max: 12900, Description: "Invest between $2,500 and $12,900. Duration: 9 days."},
	{Name: "Plan 2", Min: 4000, Max: 20400, Description: "Invest between $4,000 and $20,400. Duration: 9 days."},
	{Name: "Plan 3", Min: 8500, Max: 42900, Description: "Invest between $8,500 and $42,900. Duration: 9 days."},
	{Name: "Plan 4", Min: 12000, Max: 61000, Description: "Invest between $12,000 and $61,000. Duration: 9 days."},
}

// ByIndex resolves a 1-based tier selection; ok is false outside 1..len(Tiers).
func ByIndex(n int) (Tier, bool) {
	if n < 1 || n > len(Tiers) {
		return Tier{}, false
	}

	return Tiers[n-1], true
}
