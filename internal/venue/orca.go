package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dexarb/internal/models"
)

const orcaBaseURL = "https://api.mainnet.orca.so"

// Orca реализует Source поверх Orca Whirlpools API.
// API отдаёт полный список пулов, адаптер выбирает самый ликвидный пул пары.
type Orca struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewOrca создает новый адаптер Orca
func NewOrca() *Orca {
	return &Orca{
		httpClient: GetGlobalHTTPClient(),
		baseURL:    orcaBaseURL,
		now:        time.Now,
	}
}

func (o *Orca) Name() string {
	return "orca"
}

type orcaPool struct {
	Address string  `json:"address"`
	Price   float64 `json:"price"`
	Tvl     float64 `json:"tvl"`
	TokenA  struct {
		Mint   string `json:"mint"`
		Symbol string `json:"symbol"`
	} `json:"tokenA"`
	TokenB struct {
		Mint   string `json:"mint"`
		Symbol string `json:"symbol"`
	} `json:"tokenB"`
	Volume struct {
		Day float64 `json:"day"`
	} `json:"volume"`
}

// GetQuote получает цену, TVL и суточный объём самого ликвидного whirlpool'а пары
func (o *Orca) GetQuote(ctx context.Context, pair models.TradingPair) (*models.Quote, error) {
	baseMint, quoteMint, err := pairMints(o.Name(), pair)
	if err != nil {
		return nil, err
	}

	body, err := o.doRequest(ctx, "/v1/whirlpool/list")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Whirlpools []orcaPool `json:"whirlpools"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, dataInvalid(o.Name(), "malformed pool list: "+err.Error())
	}

	best, inverted := pickOrcaPool(resp.Whirlpools, baseMint, quoteMint)
	if best == nil {
		return nil, dataInvalid(o.Name(), "no pool found for pair")
	}

	price := best.Price
	if inverted {
		if price == 0 {
			return nil, dataInvalid(o.Name(), "zero pool price")
		}
		price = 1 / price
	}

	quote := &models.Quote{
		Venue:        o.Name(),
		Pair:         pair,
		Price:        price,
		LiquidityUsd: best.Tvl,
		Volume24hUsd: best.Volume.Day,
		ObservedAt:   o.now(),
	}

	if err := ValidateQuote(quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// GetLiquidity возвращает TVL самого ликвидного whirlpool'а пары
func (o *Orca) GetLiquidity(ctx context.Context, pair models.TradingPair) (float64, error) {
	quote, err := o.GetQuote(ctx, pair)
	if err != nil {
		return 0, err
	}
	return quote.LiquidityUsd, nil
}

// pickOrcaPool выбирает пул пары с максимальным TVL.
// inverted = true, если tokenA пула - quote-валюта (цену надо инвертировать).
func pickOrcaPool(pools []orcaPool, baseMint, quoteMint string) (best *orcaPool, inverted bool) {
	for i := range pools {
		p := &pools[i]
		var inv bool
		switch {
		case p.TokenA.Mint == baseMint && p.TokenB.Mint == quoteMint:
			inv = false
		case p.TokenA.Mint == quoteMint && p.TokenB.Mint == baseMint:
			inv = true
		default:
			continue
		}
		if best == nil || p.Tvl > best.Tvl {
			best = p
			inverted = inv
		}
	}
	return best, inverted
}

// doRequest выполняет GET запрос к Orca API
func (o *Orca) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(o.Name(), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(o.Name(), err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(o.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}

func (o *Orca) Close() error {
	return nil
}
