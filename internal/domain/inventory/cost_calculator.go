package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado del medicamento tras una recepción.
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func WeightedAverageCost(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual + cantEntrada
	if sum <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(stockActual).Mul(costoActual).Add(decimal.NewFromInt(cantEntrada).Mul(costoEntrada))
	return num.Div(decimal.NewFromInt(sum)).Round(2)
}
