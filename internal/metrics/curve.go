package metrics

import "math/big"

// 联合曲线参数，与合约内的定价逻辑保持一致
var (
	basePrice  = big.NewInt(1e13) // 起始单价，wei
	priceSlope = big.NewInt(1e9)  // 每卖出 1 个代币的涨幅，wei
	weiPerUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// SpotPrice 按已售数量计算当前单价（wei）
// price = 1e13 + soldSupply * 1e9 / 1e18
func SpotPrice(soldSupply *big.Int) *big.Int {
	price := new(big.Int).Mul(soldSupply, priceSlope)
	price.Div(price, weiPerUnit)
	return price.Add(price, basePrice)
}

// MarketCap 按当前单价和总供给计算市值（wei）
// 一个代币都没卖出时市值为 0，而不是按底价估值
func MarketCap(soldSupply, totalSupply *big.Int) *big.Int {
	if soldSupply == nil || soldSupply.Sign() == 0 {
		return big.NewInt(0)
	}
	cap := new(big.Int).Mul(SpotPrice(soldSupply), totalSupply)
	return cap.Div(cap, weiPerUnit)
}
