package contract

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 每种事件只有一种解码形态：索引参数取topics，其余按ABI解包data
// 下游永远拿到带字段名的结构体，不存在按位置访问的第二条路径

// Meta 所有解码事件共有的链上元数据
type Meta struct {
	ContractAddress common.Address `json:"contractAddress"`
	BlockNumber     uint64         `json:"blockNumber"`
	TxHash          common.Hash    `json:"txHash"`
	LogIndex        uint           `json:"logIndex"`
}

func metaFromLog(l types.Log) Meta {
	return Meta{
		ContractAddress: l.Address,
		BlockNumber:     l.BlockNumber,
		TxHash:          l.TxHash,
		LogIndex:        l.Index,
	}
}

// EventId 内存防重键，txHash_logIndex
func (m Meta) EventId() string {
	return fmt.Sprintf("%s_%d", m.TxHash.Hex(), m.LogIndex)
}

// TokenCreatedEvent 工厂的代币创建事件
type TokenCreatedEvent struct {
	Meta
	TokenAddress  common.Address `json:"tokenAddress"`
	Creator       common.Address `json:"creator"`
	EvolutionMode string         `json:"evolutionMode"`
	ChainId       int64          `json:"chainId"`
}

// InvestedEvent 买入事件
type InvestedEvent struct {
	Meta
	Buyer     common.Address `json:"buyer"`
	AmountIn  *big.Int       `json:"amountIn"`
	TokensOut *big.Int       `json:"tokensOut"`
}

// SoldEvent 卖出事件
type SoldEvent struct {
	Meta
	Seller    common.Address `json:"seller"`
	TokensIn  *big.Int       `json:"tokensIn"`
	AmountOut *big.Int       `json:"amountOut"`
}

// FinalizedEvent 毕业事件，代币迁移到流动性池
type FinalizedEvent struct {
	Meta
	LpPair      common.Address `json:"lpPair"`
	TotalRaised *big.Int       `json:"totalRaised"`
}

// ParseTokenCreated 解析TokenCreated日志
func ParseTokenCreated(l types.Log) (*TokenCreatedEvent, error) {
	if len(l.Topics) < 4 {
		return nil, fmt.Errorf("invalid TokenCreated log: insufficient topics")
	}

	var data struct {
		EvolutionMode string
		ChainId       *big.Int
	}
	if err := FactoryABI.UnpackIntoInterface(&data, "TokenCreated", l.Data); err != nil {
		return nil, fmt.Errorf("unpack TokenCreated: %w", err)
	}

	return &TokenCreatedEvent{
		Meta:          metaFromLog(l),
		TokenAddress:  common.BytesToAddress(l.Topics[1].Bytes()),
		Creator:       common.BytesToAddress(l.Topics[3].Bytes()),
		EvolutionMode: data.EvolutionMode,
		ChainId:       data.ChainId.Int64(),
	}, nil
}

// ParseInvested 解析Invested日志
func ParseInvested(l types.Log) (*InvestedEvent, error) {
	if len(l.Topics) < 2 {
		return nil, fmt.Errorf("invalid Invested log: insufficient topics")
	}

	var data struct {
		AmountIn  *big.Int
		TokensOut *big.Int
	}
	if err := TokenABI.UnpackIntoInterface(&data, "Invested", l.Data); err != nil {
		return nil, fmt.Errorf("unpack Invested: %w", err)
	}

	return &InvestedEvent{
		Meta:      metaFromLog(l),
		Buyer:     common.BytesToAddress(l.Topics[1].Bytes()),
		AmountIn:  data.AmountIn,
		TokensOut: data.TokensOut,
	}, nil
}

// ParseSold 解析Sold日志
func ParseSold(l types.Log) (*SoldEvent, error) {
	if len(l.Topics) < 2 {
		return nil, fmt.Errorf("invalid Sold log: insufficient topics")
	}

	var data struct {
		TokensIn  *big.Int
		AmountOut *big.Int
	}
	if err := TokenABI.UnpackIntoInterface(&data, "Sold", l.Data); err != nil {
		return nil, fmt.Errorf("unpack Sold: %w", err)
	}

	return &SoldEvent{
		Meta:      metaFromLog(l),
		Seller:    common.BytesToAddress(l.Topics[1].Bytes()),
		TokensIn:  data.TokensIn,
		AmountOut: data.AmountOut,
	}, nil
}

// ParseFinalized 解析Finalized日志
func ParseFinalized(l types.Log) (*FinalizedEvent, error) {
	var data struct {
		LpPair      common.Address
		TotalRaised *big.Int
	}
	if err := TokenABI.UnpackIntoInterface(&data, "Finalized", l.Data); err != nil {
		return nil, fmt.Errorf("unpack Finalized: %w", err)
	}

	return &FinalizedEvent{
		Meta:        metaFromLog(l),
		LpPair:      data.LpPair,
		TotalRaised: data.TotalRaised,
	}, nil
}

// InvestInput invest交易入参中用户附带的建议
type InvestInput struct {
	Referrer       common.Address
	NameSuggestion string
	CharSuggestion string
}

// DecodeInvestInput 尽力解码invest交易的输入数据
// 非invest调用或数据异常返回错误，调用方记录后忽略
func DecodeInvestInput(input []byte) (*InvestInput, error) {
	method := TokenABI.Methods["invest"]
	if len(input) < 4 || !bytes.Equal(input[:4], method.ID) {
		return nil, fmt.Errorf("not an invest call")
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack invest input: %w", err)
	}
	if len(args) != 3 {
		return nil, fmt.Errorf("unexpected invest arg count: %d", len(args))
	}

	referrer, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected referrer type")
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected nameSuggestion type")
	}
	char, ok := args[2].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected charSuggestion type")
	}

	return &InvestInput{Referrer: referrer, NameSuggestion: name, CharSuggestion: char}, nil
}
