package yahooModel

type RawQuoteResponse struct {
	QuoteResponse QuoteResponse `json:"quoteResponse"`
}

type QuoteResponse struct {
	Result []RawQuote `json:"result"`
	Error  *RawError  `json:"error"`
}

type RawError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// RawQuote keeps numeric fields as pointers: yahoo omits them for illiquid or unknown symbols.
type RawQuote struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	LongName                   string   `json:"longName"`
	DisplayName                string   `json:"displayName"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
	FiftyDayAverage            *float64 `json:"fiftyDayAverage"`
	RegularMarketTime          int64    `json:"regularMarketTime"`
}

type RawQuoteSummaryResponse struct {
	QuoteSummary QuoteSummary `json:"quoteSummary"`
}

type QuoteSummary struct {
	Result []QuoteSummaryResult `json:"result"`
	Error  *RawError            `json:"error"`
}

type QuoteSummaryResult struct {
	AssetProfile *AssetProfile `json:"assetProfile"`
}

type AssetProfile struct {
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}
