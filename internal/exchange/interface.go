package exchange

import (
	"context"

	"riskengine/internal/models"
)

// AccountDataProvider - унифицированный доступ к данным фьючерсного аккаунта
//
// Единственная реализация - Binance USDT-M Futures (binance.go),
// интерфейс оставлен для подмены в тестах сервисного слоя.
type AccountDataProvider interface {
	// GetAccount возвращает балансы фьючерсного аккаунта
	GetAccount(ctx context.Context) (*models.AccountInfo, error)

	// GetPositions возвращает открытые позиции (с ненулевым объёмом)
	GetPositions(ctx context.Context) ([]models.Position, error)

	// GetPrice возвращает последнюю цену символа
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// Ping проверяет доступность API биржи
	Ping(ctx context.Context) error
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Op       string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Op + ": " + e.Original.Error()
}

// Unwrap возвращает оригинальную ошибку для errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}
