// Package gateway определяет интерфейс исполнения сделок.
// Ядро никогда не подписывает и не отправляет on-chain транзакции само:
// исполнение делегируется реализации этого интерфейса.
package gateway

import (
	"context"
	"errors"

	"dexarb/internal/models"
)

// ErrExecutionFailed - gateway не смог исполнить запрос.
// Вход без позиции, выход остаётся на повтор при следующем тике.
var ErrExecutionFailed = errors.New("execution failed")

// Gateway исполняет входы и выходы и возвращает подтверждённые fill'ы.
// Подтверждённый fill откатить нельзя.
type Gateway interface {
	// RequestEntry покупает base на sizeQuote quote-валюты по референсной цене.
	// refPrice - последняя наблюдаемая цена buy venue.
	RequestEntry(ctx context.Context, pair models.TradingPair, sizeQuote, refPrice, maxSlippagePct float64) (*models.Fill, error)

	// RequestExit продаёт sizeBase base для позиции positionID.
	RequestExit(ctx context.Context, positionID string, pair models.TradingPair, sizeBase, refPrice, maxSlippagePct float64) (*models.Fill, error)
}
