package venue

import "dexarb/internal/models"

// mintTable - адреса mint'ов известных токенов Solana.
// DEX API принимают адреса mint'ов, а не тикеры.
var mintTable = map[string]string{
	"SOL":   "So11111111111111111111111111111111111111112",
	"USDC":  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"USDT":  "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	"BONK":  "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"JUP":   "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"RAY":   "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	"ORCA":  "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
	"WIF":   "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
	"JTO":   "jtojtomepa8beP8AuQc6eXt5FriJwfFMwQx2v2f9mCL",
	"PYTH":  "HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3",
	"MSOL":  "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
	"JITOSOL": "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn",
}

// MintFor возвращает адрес mint'а для тикера токена
func MintFor(symbol string) (string, bool) {
	mint, ok := mintTable[symbol]
	return mint, ok
}

// pairMints возвращает mint'ы обеих сторон пары
func pairMints(venueName string, pair models.TradingPair) (base, quote string, err error) {
	base, ok := mintTable[pair.Base]
	if !ok {
		return "", "", dataInvalid(venueName, "unknown token "+pair.Base)
	}
	quote, ok = mintTable[pair.Quote]
	if !ok {
		return "", "", dataInvalid(venueName, "unknown token "+pair.Quote)
	}
	return base, quote, nil
}
