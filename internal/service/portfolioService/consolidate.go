package portfolioService

import (
	"github.com/portfolio-engine/internal/model"
	"github.com/shopspring/decimal"
)

// Consolidate collapses overlapping holdings from several sources into one
// canonical list, grouped by identity key. Duplicates are never summed: the
// same physical holding may be reported by more than one source, so a group
// resolves to a single winner: highest source priority first, later
// last_updated on a priority tie, first seen otherwise. Output order is the
// first-seen order of identity keys, so the result does not depend on which
// source happened to be listed first.
func Consolidate(securities []model.Security) model.ConsolidatedPortfolio {
	grouped := make(map[string]model.Security, len(securities))
	order := make([]string, 0, len(securities))

	for _, sec := range securities {
		key := sec.IdentityKey()

		existing, ok := grouped[key]
		if !ok {
			grouped[key] = sec
			order = append(order, key)
			continue
		}

		grouped[key] = mergeSecurities(existing, sec)
	}

	consolidated := make([]model.Security, 0, len(order))
	for _, key := range order {
		consolidated = append(consolidated, grouped[key])
	}

	return model.ConsolidatedPortfolio{
		Securities: consolidated,
		Summary:    calculateSummary(consolidated),
		Sources:    countSources(consolidated),
	}
}

// mergeSecurities resolves one duplicate pair: priority override first,
// recency second, existing record on a full tie.
func mergeSecurities(existing, candidate model.Security) model.Security {
	if candidate.Source > existing.Source {
		return candidate
	}

	if candidate.Source == existing.Source && candidate.LastUpdated.After(existing.LastUpdated) {
		return candidate
	}

	return existing
}

func calculateSummary(securities []model.Security) model.PortfolioSummary {
	summary := model.PortfolioSummary{
		SecurityCount: len(securities),
		ByType:        make(map[model.SecurityType]model.TypeAgg),
	}

	for _, sec := range securities {
		summary.TotalValue = summary.TotalValue.Add(sec.MarketValue)
		summary.TotalPnl = summary.TotalPnl.Add(sec.Pnl)
		summary.TotalInvestment = summary.TotalInvestment.Add(sec.Quantity.Mul(sec.AvgPrice))

		agg := summary.ByType[sec.SecurityType]
		agg.Count++
		agg.Value = agg.Value.Add(sec.MarketValue)
		agg.Pnl = agg.Pnl.Add(sec.Pnl)
		summary.ByType[sec.SecurityType] = agg
	}

	if summary.TotalInvestment.IsPositive() {
		summary.OverallPnlPercentage = summary.TotalPnl.Div(summary.TotalInvestment).Mul(decimal.NewFromInt(100))
	}

	return summary
}

func countSources(securities []model.Security) model.SourceCounts {
	counts := model.SourceCounts{}
	for _, sec := range securities {
		switch sec.Source {
		case model.SourceBroker:
			counts.Broker++
		case model.SourceStatement:
			counts.Statement++
		case model.SourceManual:
			counts.Manual++
		}
	}
	return counts
}
