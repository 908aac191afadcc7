package profile

// Gold is the Korea Gold Exchange daily price table.
func Gold() Profile {
	return Profile{
		Name:          "gold",
		Description:   "Korea Gold Exchange daily gold prices (3.75g)",
		URL:           "https://www.koreagoldx.co.kr/price/gold",
		ReadySelector: "#example-table",
		RowSelector:   "#example-table .tabulator-row",
		CellSelector:  ".tabulator-cell",
		MinCells:      5,
		Columns: []Column{
			{Name: "date", Header: "고시날짜", Cell: 0, Kind: KindText, Width: 15},
			{Name: "buy_pure", Header: "내가 살 때(3.75g) - 순금", Cell: 1, Kind: KindNumber, Width: 25},
			{Name: "sell_pure", Header: "내가 팔 때(3.75g) - 순금", Cell: 2, Kind: KindNumber, Width: 25},
			{Name: "sell_18k", Header: "내가 팔 때(3.75g) - 18K", Cell: 3, Kind: KindNumber, Width: 25},
			{Name: "sell_14k", Header: "내가 팔 때(3.75g) - 14K", Cell: 4, Kind: KindNumber, Width: 25},
		},
		KeyColumns: []string{"date", "buy_pure"},
		Next: []LocatorSpec{
			{Strategy: StrategyAttribute, Selector: "button.tabulator-page[data-page='next']"},
		},
		TargetCount: 100,
		MaxPages:    20,
		SheetName:   "금시세",
		FilePrefix:  "금시세",
		HeaderColor: "366092",
		Summary:     true,
		LabelColumn: "date",
	}
}

// Gainers is the Yahoo Finance top stock gainers screener.
func Gainers() Profile {
	return Profile{
		Name:            "gainers",
		Description:     "Yahoo Finance top stock gainers",
		URL:             "https://finance.yahoo.com/markets/stocks/gainers/",
		ConsentSelector: "button.accept-all, button[name='agree']",
		ReadySelector:   "table",
		RowSelector:     "table tbody tr",
		CellSelector:    "td",
		MinCells:        10,
		Columns: []Column{
			{Name: "symbol", Header: "Symbol", Cell: 0, Kind: KindText, Width: 10},
			{Name: "name", Header: "Company Name", Cell: 1, Kind: KindText, Width: 35},
			{Name: "price", Header: "Price", Cell: 3, Kind: KindLeadingNumber, Width: 12},
			{Name: "change", Header: "Change", Cell: 4, Kind: KindSigned, Width: 10},
			{Name: "change_pct", Header: "Change %", Cell: 5, Kind: KindPercent, Width: 12},
			{Name: "volume", Header: "Volume", Cell: 6, Kind: KindMagnitude, Width: 15},
			{Name: "avg_volume", Header: "Avg Volume", Cell: 7, Kind: KindMagnitude, Width: 15},
			{Name: "market_cap", Header: "Market Cap", Cell: 8, Kind: KindMagnitude, Width: 15},
			{Name: "pe_ratio", Header: "P/E Ratio", Cell: 9, Kind: KindNumber, Width: 12},
			{Name: "ytd_change_pct", Header: "YTD Change %", Cell: 10, Kind: KindPercent, Width: 15, Optional: true},
			{Name: "week52_low", Header: "52 Week Low", Cell: 11, Kind: KindRangeLow, Width: 15, Optional: true},
			{Name: "week52_high", Header: "52 Week High", Cell: 11, Kind: KindRangeHigh, Width: 15, Optional: true},
		},
		KeyColumns: []string{"symbol"},
		Next: []LocatorSpec{
			{Strategy: StrategyAttribute, Selector: "button[aria-label='Goto next page']"},
			{Strategy: StrategyAttribute, Selector: "button[title*='next'], button[title*='Next']"},
			{Strategy: StrategyLabel, Selector: "button", Attrs: []string{"aria-label", "title"}, Contains: []string{"next"}},
			{Strategy: StrategyText, Selector: "button, a", Contains: []string{"next", "›", "»"}},
			{
				Strategy:  StrategyStructural,
				Container: "div[class*='pagination'], nav[class*='pagination']",
				Item:      "button",
				MinItems:  4,
				Index:     2,
			},
		},
		TargetCount:     50,
		MaxPages:        5,
		SheetName:       "Stock Gainers",
		FilePrefix:      "주식상승종목",
		HeaderColor:     "4472C4",
		HighlightColumn: "change_pct",
		LabelColumn:     "symbol",
	}
}

// Builtin returns the profiles that ship with tablescout, keyed by name.
func Builtin() map[string]Profile {
	gold, gainers := Gold(), Gainers()
	return map[string]Profile{
		gold.Name:    gold,
		gainers.Name: gainers,
	}
}
