package metrics

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestStaleProjectsSelectsOldestUnfinalized(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"contract_address", "chain_id"}).
		AddRow("0xaaa", int64(80002)).
		AddRow("0xbbb", int64(80002))
	mock.ExpectQuery(`SELECT \* FROM "projects" WHERE is_finalized = \$1 ORDER BY last_interaction_at ASC LIMIT`).
		WillReturnRows(rows)

	projects, err := store.StaleProjects(2)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "0xaaa", projects[0].ContractAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMetricsBumpsInteractionTimestamp(t *testing.T) {
	// 刷新必须同时推后 last_interaction_at，否则同一批项目永远是最旧的，
	// 下一轮还会选中它们，其余项目的指标得不到刷新
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "projects" SET .*"last_interaction_at"=\$\d+.* WHERE contract_address = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateMetrics("0xaaa", Update{
		TotalRaised:  "100",
		MarketCap:    "200",
		Volume24h:    "300",
		HoldersCount: 4,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
