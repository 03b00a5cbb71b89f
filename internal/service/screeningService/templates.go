package screeningService

// Template is a predefined, named stock screen.
type Template struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Filters     StockFilters `json:"filters"`
}

func floatPtr(v float64) *float64 { return &v }

// GetScreeningTemplates returns the built-in screens.
func (s *ScreeningService) GetScreeningTemplates() map[string]Template {
	return map[string]Template{
		"value_stocks": {
			Name:        "Value Stocks",
			Description: "Stocks with low P/E and high ROE",
			Filters: StockFilters{
				PeRatioMax:   floatPtr(15),
				RoeMin:       floatPtr(12),
				MarketCapMin: floatPtr(1_000_000_000),
			},
		},
		"growth_stocks": {
			Name:        "Growth Stocks",
			Description: "Stocks with high return on capital",
			Filters: StockFilters{
				RoceMin:      floatPtr(15),
				MarketCapMin: floatPtr(500_000_000),
			},
		},
		"dividend_stocks": {
			Name:        "Dividend Stocks",
			Description: "Moderately priced stocks with steady earnings",
			Filters: StockFilters{
				PeRatioMax: floatPtr(25),
				RoeMin:     floatPtr(10),
			},
		},
		"quality_stocks": {
			Name:        "Quality Stocks",
			Description: "Stocks with high quality metrics",
			Filters: StockFilters{
				RoeMin:  floatPtr(15),
				RoceMin: floatPtr(18),
			},
		},
		"large_caps": {
			Name:        "Large Caps",
			Description: "The biggest companies by market cap",
			Filters: StockFilters{
				MarketCapMin: floatPtr(10_000_000_000),
				SortBy:       "-basic_info.market_cap",
			},
		},
	}
}
