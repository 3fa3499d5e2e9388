package fetcher

// indexAliases maps friendly index names to their quote tickers.
var indexAliases = map[string]string{
	"sp500":       "^GSPC",
	"dow_jones":   "^DJI",
	"nasdaq":      "^IXIC",
	"nasdaq100":   "^NDX",
	"russell2000": "^RUT",
	"vix":         "^VIX",
	"ftse100":     "^FTSE",
	"dax":         "^GDAXI",
	"cac40":       "^FCHI",
	"ibex35":      "^IBEX",
	"eurostoxx50": "^STOXX50E",
	"nikkei225":   "^N225",
	"hang_seng":   "^HSI",
}

// ResolveIndex translates a friendly index alias into its ticker. Unknown
// names pass through unchanged so plain tickers keep working.
func ResolveIndex(name string) string {
	if ticker, ok := indexAliases[name]; ok {
		return ticker
	}
	return name
}
