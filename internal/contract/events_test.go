package contract

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000AB")
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", NormalizeAddress(addr))
}

func TestEventId(t *testing.T) {
	m := Meta{TxHash: common.HexToHash("0x1234"), LogIndex: 7}
	assert.Equal(t, m.TxHash.Hex()+"_7", m.EventId())
}

func TestEventTopicsDistinct(t *testing.T) {
	topics := map[common.Hash]string{
		TokenCreatedTopic: "TokenCreated",
		InvestedTopic:     "Invested",
		SoldTopic:         "Sold",
		FinalizedTopic:    "Finalized",
	}
	assert.Len(t, topics, 4)
	for topic := range topics {
		assert.NotEqual(t, common.Hash{}, topic)
	}
}

func TestDecodeInvestInputRoundTrip(t *testing.T) {
	referrer := common.HexToAddress("0x00000000000000000000000000000000000000cd")
	input := PackCall("invest", referrer, "Sparky", "a thunder lizard")

	decoded, err := DecodeInvestInput(input)
	require.NoError(t, err)
	assert.Equal(t, referrer, decoded.Referrer)
	assert.Equal(t, "Sparky", decoded.NameSuggestion)
	assert.Equal(t, "a thunder lizard", decoded.CharSuggestion)
}

func TestDecodeInvestInputRejectsOtherCalls(t *testing.T) {
	_, err := DecodeInvestInput(PackCall("totalRaised"))
	assert.Error(t, err)

	_, err = DecodeInvestInput([]byte{0x01, 0x02})
	assert.Error(t, err)
}
