package models

import "math"

// MoneyTolerance ödeme karşılaştırmalarında kuruş yuvarlama payı
const MoneyTolerance = 0.01

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
