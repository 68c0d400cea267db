package models

import "time"

// Стороны позиции
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Position - открытая фьючерсная позиция
//
// Создаётся снаружи ядра (при открытии сделки), обновляется на каждом
// тике цены. Ядро только читает её для оценки риска.
type Position struct {
	Symbol           string    `json:"symbol"`
	Side             string    `json:"side"` // LONG или SHORT
	EntryPrice       float64   `json:"entry_price"`
	MarkPrice        float64   `json:"mark_price"`
	Quantity         float64   `json:"quantity"`
	Leverage         int       `json:"leverage"`
	MarginUsed       float64   `json:"margin_used"`
	UnrealizedPnl    float64   `json:"unrealized_pnl"`
	LiquidationPrice float64   `json:"liquidation_price,omitempty"` // 0 = неизвестна
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccountInfo - снимок состояния фьючерсного аккаунта
type AccountInfo struct {
	TotalWalletBalance  float64   `json:"total_wallet_balance"`
	TotalMarginBalance  float64   `json:"total_margin_balance"`
	TotalUnrealizedPnl  float64   `json:"total_unrealized_pnl"`
	AvailableBalance    float64   `json:"available_balance"`
	UpdatedAt           time.Time `json:"updated_at"`
}
