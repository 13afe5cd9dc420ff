package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"dexarb/internal/models"
)

const raydiumBaseURL = "https://api-v3.raydium.io"

// Raydium реализует Source поверх Raydium v3 API.
// Цена и TVL берутся из самого ликвидного пула пары.
type Raydium struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewRaydium создает новый адаптер Raydium
func NewRaydium() *Raydium {
	return &Raydium{
		httpClient: GetGlobalHTTPClient(),
		baseURL:    raydiumBaseURL,
		now:        time.Now,
	}
}

func (r *Raydium) Name() string {
	return "raydium"
}

// GetQuote получает цену, TVL и суточный объём самого ликвидного пула пары
func (r *Raydium) GetQuote(ctx context.Context, pair models.TradingPair) (*models.Quote, error) {
	baseMint, quoteMint, err := pairMints(r.Name(), pair)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("mint1", baseMint)
	params.Set("mint2", quoteMint)
	params.Set("poolType", "all")
	params.Set("poolSortField", "liquidity")
	params.Set("sortType", "desc")
	params.Set("pageSize", "1")
	params.Set("page", "1")

	body, err := r.doRequest(ctx, "/pools/info/mint", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Data []struct {
				Price float64 `json:"price"`
				Tvl   float64 `json:"tvl"`
				MintA struct {
					Address string `json:"address"`
				} `json:"mintA"`
				Day struct {
					Volume float64 `json:"volume"`
				} `json:"day"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, dataInvalid(r.Name(), "malformed pool response: "+err.Error())
	}

	if !resp.Success {
		return nil, unavailable(r.Name(), "API reported failure")
	}
	if len(resp.Data.Data) == 0 {
		return nil, dataInvalid(r.Name(), "no pool found for pair")
	}

	pool := resp.Data.Data[0]

	// Пул может быть развёрнут: mintA - quote-валюта, тогда цена инвертирована
	price := pool.Price
	if pool.MintA.Address == quoteMint {
		if price == 0 {
			return nil, dataInvalid(r.Name(), "zero pool price")
		}
		price = 1 / price
	}

	quote := &models.Quote{
		Venue:        r.Name(),
		Pair:         pair,
		Price:        price,
		LiquidityUsd: pool.Tvl,
		Volume24hUsd: pool.Day.Volume,
		ObservedAt:   r.now(),
	}

	if err := ValidateQuote(quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// GetLiquidity возвращает TVL самого ликвидного пула пары
func (r *Raydium) GetLiquidity(ctx context.Context, pair models.TradingPair) (float64, error) {
	quote, err := r.GetQuote(ctx, pair)
	if err != nil {
		return 0, err
	}
	return quote.LiquidityUsd, nil
}

// doRequest выполняет GET запрос к Raydium API
func (r *Raydium) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := r.baseURL + endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(r.Name(), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(r.Name(), err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(r.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}

func (r *Raydium) Close() error {
	return nil
}
