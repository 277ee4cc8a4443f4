package poller

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/event"
	"github.com/LolHubFun/server-vps/internal/ledger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader 固定链头和日志集的链读实现
type fakeReader struct {
	head        uint64
	logs        []types.Log
	queries     []ethereum.FilterQuery
	filterErr   error
	headErr     error
	logsByTopic map[common.Hash][]types.Log
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	if f.headErr != nil {
		return 0, f.headErr
	}
	return f.head, nil
}

func (f *fakeReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, q)
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	if f.logsByTopic != nil && len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
		return f.logsByTopic[q.Topics[0][0]], nil
	}
	return f.logs, nil
}

type fakeProvider struct {
	reader *fakeReader
	err    error
}

func (f *fakeProvider) Reader(ctx context.Context, chainId int64) (ChainReader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reader, nil
}

// fakeCursor 内存游标
type fakeCursor struct {
	block uint64
	found bool
	saves []uint64
}

func (f *fakeCursor) LastCheckedBlock() (uint64, bool, error) {
	return f.block, f.found, nil
}

func (f *fakeCursor) SaveLastCheckedBlock(block uint64) error {
	f.saves = append(f.saves, block)
	f.block = block
	f.found = true
	return nil
}

// 事件处理器的最小依赖，轮询器测试只数台账插入次数
type countingLedger struct {
	inserted []string
}

func (c *countingLedger) Exists(contractAddress, txHash, eventName string) (bool, error) {
	return false, nil
}

func (c *countingLedger) InsertIgnore(entry *model.ProjectEvent) (bool, error) {
	c.inserted = append(c.inserted, entry.TxHash)
	return true, nil
}

func (c *countingLedger) EventsForContract(contractAddress string) ([]model.ProjectEvent, error) {
	return nil, nil
}

func (c *countingLedger) RecentEvents(contractAddress, eventName string, limit int) ([]model.ProjectEvent, error) {
	return nil, nil
}

type nullProjects struct{}

func (nullProjects) CreateIfAbsent(project *model.Project) (bool, error) { return true, nil }
func (nullProjects) AdjustRaised(addr string, delta *big.Int) error      { return nil }
func (nullProjects) MarkFinalized(addr, lpPair string) error             { return nil }
func (nullProjects) UpsertSuggestion(s *model.Suggestion) error          { return nil }

type nullTrigger struct{}

func (nullTrigger) CheckAndTrigger(ctx context.Context, addr string) (bool, error) {
	return false, nil
}

func tokenCreatedLog(txHash common.Hash, block uint64, index uint) types.Log {
	data, err := contract.FactoryABI.Events["TokenCreated"].Inputs.NonIndexed().Pack(
		"standard", big.NewInt(80002))
	if err != nil {
		panic(err)
	}
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	return types.Log{
		Address: common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		Topics: []common.Hash{
			contract.TokenCreatedTopic,
			common.BytesToHash(addr.Bytes()),
			common.BytesToHash(addr.Bytes()),
			common.BytesToHash(addr.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHash,
		Index:       index,
	}
}

func newTestProcessor(ldg ledger.Store) *event.Processor {
	return event.NewProcessor(ldg, ledger.NewReplayGuard(), nullProjects{}, nullTrigger{}, nil, nil)
}

func TestTokenPollerNoopWhenHeadAtCursor(t *testing.T) {
	reader := &fakeReader{head: 100}
	cursor := &fakeCursor{block: 100, found: true}
	p := NewTokenCreatedPoller(&fakeProvider{reader: reader}, cursor, newTestProcessor(&countingLedger{}), "0xff", 80002)

	p.Run(context.Background())

	// 没有新区块：不拉日志也不动游标
	assert.Empty(t, reader.queries)
	assert.Empty(t, cursor.saves)
}

func TestTokenPollerProcessesAndAdvancesCursor(t *testing.T) {
	ldg := &countingLedger{}
	reader := &fakeReader{
		head: 110,
		logs: []types.Log{
			tokenCreatedLog(common.HexToHash("0x02"), 106, 0),
			tokenCreatedLog(common.HexToHash("0x01"), 105, 1),
			tokenCreatedLog(common.HexToHash("0x03"), 105, 0),
		},
	}
	cursor := &fakeCursor{block: 100, found: true}
	p := NewTokenCreatedPoller(&fakeProvider{reader: reader}, cursor, newTestProcessor(ldg), "0xff", 80002)

	p.Run(context.Background())

	require.Len(t, reader.queries, 1)
	assert.Equal(t, big.NewInt(101), reader.queries[0].FromBlock)
	assert.Equal(t, big.NewInt(110), reader.queries[0].ToBlock)

	// 日志按 (区块, 序号) 升序处理
	require.Len(t, ldg.inserted, 3)
	assert.Equal(t, common.HexToHash("0x03").Hex(), ldg.inserted[0])
	assert.Equal(t, common.HexToHash("0x01").Hex(), ldg.inserted[1])
	assert.Equal(t, common.HexToHash("0x02").Hex(), ldg.inserted[2])

	// 游标推进到链头
	assert.Equal(t, []uint64{110}, cursor.saves)
}

func TestTokenPollerDefaultLookbackWithoutCursor(t *testing.T) {
	reader := &fakeReader{head: 1000}
	cursor := &fakeCursor{}
	p := NewTokenCreatedPoller(&fakeProvider{reader: reader}, cursor, newTestProcessor(&countingLedger{}), "0xff", 80002)

	p.Run(context.Background())

	require.Len(t, reader.queries, 1)
	assert.Equal(t, big.NewInt(int64(1000-defaultLookback+1)), reader.queries[0].FromBlock)
}

func TestTokenPollerCursorSavedEvenWithoutLogs(t *testing.T) {
	reader := &fakeReader{head: 120}
	cursor := &fakeCursor{block: 100, found: true}
	p := NewTokenCreatedPoller(&fakeProvider{reader: reader}, cursor, newTestProcessor(&countingLedger{}), "0xff", 80002)

	p.Run(context.Background())

	assert.Equal(t, []uint64{120}, cursor.saves)
}

func TestTokenPollerProviderFailure(t *testing.T) {
	cursor := &fakeCursor{block: 100, found: true}
	p := NewTokenCreatedPoller(&fakeProvider{err: errors.New("no usable rpc")}, cursor, newTestProcessor(&countingLedger{}), "0xff", 80002)

	// 失败只记录，游标不动
	p.Run(context.Background())
	assert.Empty(t, cursor.saves)
}

func TestSortLogs(t *testing.T) {
	logs := []types.Log{
		{BlockNumber: 5, Index: 2},
		{BlockNumber: 3, Index: 9},
		{BlockNumber: 5, Index: 0},
		{BlockNumber: 1, Index: 1},
	}
	sortLogs(logs)

	assert.Equal(t, uint64(1), logs[0].BlockNumber)
	assert.Equal(t, uint64(3), logs[1].BlockNumber)
	assert.Equal(t, uint64(5), logs[2].BlockNumber)
	assert.Equal(t, uint(0), logs[2].Index)
	assert.Equal(t, uint(2), logs[3].Index)
}

// fakeLister 项目轮询器的内存存储
type fakeLister struct {
	projects []model.Project
	cursors  map[string]uint64
}

func (f *fakeLister) ActiveProjects(limit int) ([]model.Project, error) {
	if len(f.projects) > limit {
		return f.projects[:limit], nil
	}
	return f.projects, nil
}

func (f *fakeLister) SaveProjectCursor(contractAddress string, block uint64) error {
	if f.cursors == nil {
		f.cursors = make(map[string]uint64)
	}
	f.cursors[contractAddress] = block
	return nil
}

func TestProjectPollerCapsBlockWindow(t *testing.T) {
	reader := &fakeReader{head: 10000}
	lister := &fakeLister{projects: []model.Project{
		{ContractAddress: "0xaaa", ChainId: 80002, LastProcessedBlock: 1000},
	}}
	p := NewProjectEventPoller(&fakeProvider{reader: reader}, lister, newTestProcessor(&countingLedger{}), 10)

	p.Run(context.Background())

	// 每种事件类型一次查询，窗口都被封顶
	require.Len(t, reader.queries, len(projectEventTopics))
	for _, q := range reader.queries {
		assert.Equal(t, big.NewInt(1001), q.FromBlock)
		assert.Equal(t, big.NewInt(1000+maxBlockWindow), q.ToBlock)
	}

	// 游标推进到窗口末尾而不是链头
	assert.Equal(t, uint64(1000+maxBlockWindow), lister.cursors["0xaaa"])
}

func TestProjectPollerNoopWhenUpToDate(t *testing.T) {
	reader := &fakeReader{head: 500}
	lister := &fakeLister{projects: []model.Project{
		{ContractAddress: "0xaaa", ChainId: 80002, LastProcessedBlock: 500},
	}}
	p := NewProjectEventPoller(&fakeProvider{reader: reader}, lister, newTestProcessor(&countingLedger{}), 10)

	p.Run(context.Background())

	assert.Empty(t, reader.queries)
	assert.Empty(t, lister.cursors)
}

func TestProjectPollerIsolatesFilterFailures(t *testing.T) {
	reader := &fakeReader{head: 600, filterErr: errors.New("rpc overload")}
	lister := &fakeLister{projects: []model.Project{
		{ContractAddress: "0xaaa", ChainId: 80002, LastProcessedBlock: 500},
	}}
	p := NewProjectEventPoller(&fakeProvider{reader: reader}, lister, newTestProcessor(&countingLedger{}), 10)

	p.Run(context.Background())

	// 所有类型都失败仍然推进游标，漏掉的靠一致性核对
	require.Len(t, reader.queries, len(projectEventTopics))
	assert.Equal(t, uint64(600), lister.cursors["0xaaa"])
}
