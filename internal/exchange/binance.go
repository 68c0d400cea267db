package exchange

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"riskengine/internal/models"
	"riskengine/pkg/ratelimit"
)

const exchangeName = "binance"

// BinanceClient - клиент Binance USDT-M Futures
//
// Все запросы идут через token bucket rate limiter: лимит Binance для
// подписанных запросов достаточно щедрый, но цикл мониторинга не должен
// конкурировать с торговым трафиком за request weight.
type BinanceClient struct {
	client  *futures.Client
	limiter *ratelimit.RateLimiter
}

// NewBinanceClient создаёт клиент фьючерсного API
//
// Параметры:
//   - apiKey, secretKey: ключи API (read-only достаточно)
//   - testnet: использовать testnet вместо боевого API
func NewBinanceClient(apiKey, secretKey string, testnet bool) *BinanceClient {
	futures.UseTestnet = testnet

	return &BinanceClient{
		client:  binance.NewFuturesClient(apiKey, secretKey),
		limiter: ratelimit.NewRateLimiter(5, 10),
	}
}

// Ping проверяет доступность API
func (b *BinanceClient) Ping(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return &ExchangeError{Exchange: exchangeName, Op: "ping", Original: err}
	}
	return nil
}

// GetAccount возвращает балансы фьючерсного аккаунта
func (b *BinanceClient) GetAccount(ctx context.Context) (*models.AccountInfo, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, &ExchangeError{Exchange: exchangeName, Op: "get account", Original: err}
	}

	return &models.AccountInfo{
		TotalWalletBalance: parseFloat(account.TotalWalletBalance),
		TotalMarginBalance: parseFloat(account.TotalMarginBalance),
		TotalUnrealizedPnl: parseFloat(account.TotalUnrealizedProfit),
		AvailableBalance:   parseFloat(account.AvailableBalance),
		UpdatedAt:          time.Now().UTC(),
	}, nil
}

// GetPositions возвращает открытые позиции
//
// Binance отдаёт запись для каждого символа с когда-либо открытой
// позицией; записи с нулевым объёмом отбрасываются.
func (b *BinanceClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	risks, err := b.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, &ExchangeError{Exchange: exchangeName, Op: "get position risk", Original: err}
	}

	positions := make([]models.Position, 0, len(risks))
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		positions = append(positions, convertPosition(r, amt))
	}

	return positions, nil
}

// GetPrice возвращает последнюю цену символа
func (b *BinanceClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, &ExchangeError{Exchange: exchangeName, Op: "get price", Original: err}
	}
	if len(prices) == 0 {
		return 0, &ExchangeError{
			Exchange: exchangeName,
			Op:       "get price",
			Original: fmt.Errorf("no price for symbol %s", symbol),
		}
	}

	return parseFloat(prices[0].Price), nil
}

// convertPosition переводит ответ Binance во внутреннюю модель
func convertPosition(r *futures.PositionRisk, amt float64) models.Position {
	side := models.SideLong
	if amt < 0 {
		side = models.SideShort
	}

	markPrice := parseFloat(r.MarkPrice)
	leverage := int(parseFloat(r.Leverage))
	if leverage < 1 {
		leverage = 1
	}

	// Для isolated позиций маржа приходит явно, для cross считаем
	// начальную маржу из нотинала и плеча
	marginUsed := parseFloat(r.IsolatedMargin)
	if marginUsed == 0 {
		marginUsed = math.Abs(amt) * markPrice / float64(leverage)
	}

	return models.Position{
		Symbol:           r.Symbol,
		Side:             side,
		EntryPrice:       parseFloat(r.EntryPrice),
		MarkPrice:        markPrice,
		Quantity:         math.Abs(amt),
		Leverage:         leverage,
		MarginUsed:       marginUsed,
		UnrealizedPnl:    parseFloat(r.UnRealizedProfit),
		LiquidationPrice: parseFloat(r.LiquidationPrice),
		UpdatedAt:        time.Now().UTC(),
	}
}

// parseFloat разбирает числовое поле API, пустые и кривые значения -> 0
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
