package kalshi

// apiTrade is one row of the public /markets/trades response. Prices are in
// cents and the API does not expose who traded.
type apiTrade struct {
	TradeID     string  `json:"trade_id"`
	Ticker      string  `json:"ticker"`
	Count       float64 `json:"count"`
	YesPrice    float64 `json:"yes_price"`
	NoPrice     float64 `json:"no_price"`
	TakerSide   string  `json:"taker_side"` // yes, no
	CreatedTime string  `json:"created_time"`
}

type tradesResponse struct {
	Trades []apiTrade `json:"trades"`
	Cursor string     `json:"cursor"`
}

type marketResponse struct {
	Market struct {
		Ticker   string `json:"ticker"`
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"market"`
}
