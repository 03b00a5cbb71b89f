package screeningService

import (
	"context"
	"log/slog"
	"time"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
)

type CatalogProvider interface {
	GetInstruments(ctx context.Context) ([]model.CatalogRecord, error)
	GetFunds(ctx context.Context) ([]model.CatalogRecord, error)
}

// ScreeningService filters the instrument and fund catalogs. Both catalogs
// share one evaluator; only the mapping from named filter inputs to document
// paths differs.
type ScreeningService struct {
	cfg     *config.Config
	catalog CatalogProvider
}

func New(cfg *config.Config, catalog CatalogProvider) *ScreeningService {
	return &ScreeningService{cfg: cfg, catalog: catalog}
}

type Result struct {
	Results        []model.CatalogRecord `json:"results"`
	TotalCount     int                   `json:"total_count"`
	FilteredCount  int                   `json:"filtered_count"`
	Page           int                   `json:"page"`
	FiltersApplied any                   `json:"filters_applied"`
	ScreeningDate  time.Time             `json:"screening_date"`
}

type StockFilters struct {
	PeRatioMin     *float64
	PeRatioMax     *float64
	PbRatioMin     *float64
	PbRatioMax     *float64
	RoeMin         *float64
	RoeMax         *float64
	RoceMin        *float64
	MarketCapMin   *float64
	MarketCapMax   *float64
	PriceMin       *float64
	PriceMax       *float64
	Sectors        []string
	ExcludeSectors []string
	SortBy         string
	Page           int
	Limit          int
}

type FundFilters struct {
	Categories      []string
	SubCategories   []string
	Amcs            []string
	AumMin          *float64
	AumMax          *float64
	ExpenseRatioMax *float64
	Returns1yMin    *float64
	Returns3yMin    *float64
	SortBy          string
	Page            int
	Limit           int
}

func (s *ScreeningService) ScreenStocks(ctx context.Context, filters StockFilters) (Result, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ScreeningService.ScreenStocks"

	slog.Debug("ScreenStocks start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ScreenStocks finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	records, err := s.catalog.GetInstruments(ctx)
	if err != nil {
		slog.Error("got error from catalog.GetInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Result{}, err
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "-basic_info.market_cap"
	}

	result := s.screen(records, buildStockQuery(filters), sortBy, filters.Page, filters.Limit)
	result.FiltersApplied = filters
	return result, nil
}

func (s *ScreeningService) ScreenMutualFunds(ctx context.Context, filters FundFilters) (Result, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ScreeningService.ScreenMutualFunds"

	slog.Debug("ScreenMutualFunds start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ScreenMutualFunds finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	records, err := s.catalog.GetFunds(ctx)
	if err != nil {
		slog.Error("got error from catalog.GetFunds", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Result{}, err
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "-basic_info.aum"
	}

	result := s.screen(records, buildFundQuery(filters), sortBy, filters.Page, filters.Limit)
	result.FiltersApplied = filters
	return result, nil
}

func (s *ScreeningService) screen(records []model.CatalogRecord, query Query, sortBy string, page, limit int) Result {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.Screening.ResultsPerPage
	}

	filtered := Apply(records, query)
	sorted := SortRecords(filtered, sortBy)
	paginated := Paginate(sorted, page, limit)

	return Result{
		Results:       paginated,
		TotalCount:    len(filtered),
		FilteredCount: len(paginated),
		Page:          page,
		ScreeningDate: time.Now(),
	}
}

func buildStockQuery(filters StockFilters) Query {
	query := Query{}

	addRange(query, "fundamental_data.pe_ratio", filters.PeRatioMin, filters.PeRatioMax)
	addRange(query, "fundamental_data.pb_ratio", filters.PbRatioMin, filters.PbRatioMax)
	addRange(query, "fundamental_data.roe", filters.RoeMin, filters.RoeMax)
	addRange(query, "fundamental_data.roce", filters.RoceMin, nil)
	addRange(query, "basic_info.market_cap", filters.MarketCapMin, filters.MarketCapMax)
	addRange(query, "price_data.current_price", filters.PriceMin, filters.PriceMax)

	if len(filters.Sectors) > 0 || len(filters.ExcludeSectors) > 0 {
		cond := query["basic_info.sector"]
		cond.In = filters.Sectors
		cond.Nin = filters.ExcludeSectors
		query["basic_info.sector"] = cond
	}

	return query
}

func buildFundQuery(filters FundFilters) Query {
	query := Query{}

	addMembership(query, "basic_info.category", filters.Categories)
	addMembership(query, "basic_info.sub_category", filters.SubCategories)
	addMembership(query, "basic_info.amc", filters.Amcs)
	addRange(query, "basic_info.aum", filters.AumMin, filters.AumMax)
	addRange(query, "basic_info.expense_ratio", nil, filters.ExpenseRatioMax)
	addRange(query, "performance_data.returns_1y", filters.Returns1yMin, nil)
	addRange(query, "performance_data.returns_3y", filters.Returns3yMin, nil)

	return query
}

func addRange(query Query, path string, min, max *float64) {
	if min == nil && max == nil {
		return
	}

	cond := query[path]
	cond.Gte = min
	cond.Lte = max
	query[path] = cond
}

func addMembership(query Query, path string, values []string) {
	if len(values) == 0 {
		return
	}

	cond := query[path]
	cond.In = values
	query[path] = cond
}
