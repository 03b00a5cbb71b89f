package model

// CatalogRecord is one instrument or fund document from a catalog, with
// arbitrary nested sections (basic_info, price_data, fundamental_data, ...).
type CatalogRecord map[string]any
