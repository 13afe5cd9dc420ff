package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"dexarb/internal/models"
)

// Быстрая drop-in замена encoding/json: разбор ответов DEX - горячий путь
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	jupiterPriceURL = "https://price.jup.ag/v6/price"
	jupiterQuoteURL = "https://quote-api.jup.ag/v6/quote"

	// Размер пробного свопа в quote-валюте для оценки глубины через price impact
	jupiterProbeUsd = 1000

	// Потолок оценки глубины, когда impact неотличим от нуля
	jupiterMaxDepthUsd = 1e9
)

// Jupiter реализует Source поверх агрегатора Jupiter.
// Цена берётся из Price API, глубина оценивается по price impact
// пробного свопа через Quote API.
type Jupiter struct {
	httpClient *http.Client
	priceURL   string
	quoteURL   string
	now        func() time.Time
}

// NewJupiter создает новый адаптер Jupiter
// Использует глобальный HTTP клиент с connection pooling
func NewJupiter() *Jupiter {
	return &Jupiter{
		httpClient: GetGlobalHTTPClient(),
		priceURL:   jupiterPriceURL,
		quoteURL:   jupiterQuoteURL,
		now:        time.Now,
	}
}

func (j *Jupiter) Name() string {
	return "jupiter"
}

// GetQuote получает цену пары и оценку глубины рынка
func (j *Jupiter) GetQuote(ctx context.Context, pair models.TradingPair) (*models.Quote, error) {
	baseMint, quoteMint, err := pairMints(j.Name(), pair)
	if err != nil {
		return nil, err
	}

	price, err := j.fetchPrice(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}

	depth, err := j.estimateDepth(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}

	quote := &models.Quote{
		Venue:        j.Name(),
		Pair:         pair,
		Price:        price,
		LiquidityUsd: depth,
		ObservedAt:   j.now(),
	}

	if err := ValidateQuote(quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// GetLiquidity возвращает оценку глубины рынка пары без запроса цены
func (j *Jupiter) GetLiquidity(ctx context.Context, pair models.TradingPair) (float64, error) {
	baseMint, quoteMint, err := pairMints(j.Name(), pair)
	if err != nil {
		return 0, err
	}
	return j.estimateDepth(ctx, baseMint, quoteMint)
}

// fetchPrice запрашивает цену base в quote через Price API
func (j *Jupiter) fetchPrice(ctx context.Context, baseMint, quoteMint string) (float64, error) {
	params := url.Values{}
	params.Set("ids", baseMint)
	params.Set("vsToken", quoteMint)

	body, err := j.doRequest(ctx, j.priceURL, params)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Data map[string]struct {
			ID    string  `json:"id"`
			Price float64 `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, dataInvalid(j.Name(), "malformed price response: "+err.Error())
	}

	entry, ok := resp.Data[baseMint]
	if !ok {
		return 0, dataInvalid(j.Name(), "pair missing from price response")
	}
	return entry.Price, nil
}

// estimateDepth оценивает доступную ликвидность по price impact
// пробного свопа: своп на probeUsd с impact 0.1% означает глубину ~probeUsd/0.001
func (j *Jupiter) estimateDepth(ctx context.Context, baseMint, quoteMint string) (float64, error) {
	// Пары котируются в стейблкоинах с 6 десятичными знаками
	probeAmount := int64(jupiterProbeUsd * 1_000_000)

	params := url.Values{}
	params.Set("inputMint", quoteMint)
	params.Set("outputMint", baseMint)
	params.Set("amount", strconv.FormatInt(probeAmount, 10))
	params.Set("slippageBps", "50")

	body, err := j.doRequest(ctx, j.quoteURL, params)
	if err != nil {
		return 0, err
	}

	var resp struct {
		OutAmount      string `json:"outAmount"`
		PriceImpactPct string `json:"priceImpactPct"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, dataInvalid(j.Name(), "malformed quote response: "+err.Error())
	}

	impact, err := strconv.ParseFloat(resp.PriceImpactPct, 64)
	if err != nil {
		return 0, dataInvalid(j.Name(), "malformed price impact: "+resp.PriceImpactPct)
	}

	if impact <= 0 {
		return jupiterMaxDepthUsd, nil
	}

	depth := jupiterProbeUsd / impact
	if depth > jupiterMaxDepthUsd {
		depth = jupiterMaxDepthUsd
	}
	return depth, nil
}

// doRequest выполняет GET запрос к Jupiter API
func (j *Jupiter) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(j.Name(), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(j.Name(), err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(j.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}

func (j *Jupiter) Close() error {
	return nil
}
