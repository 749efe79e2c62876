package service

import (
	"sync"
	"testing"

	"custody-core/internal/model"
	"custody-core/pkg/chainreg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// dryRunDB 返回一个只生成 SQL 不执行的 gorm 实例，不需要真实数据库。
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost"}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

func TestChainIDIsNotAutoIncrement(t *testing.T) {
	s, err := schema.Parse(&model.Chain{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	pk := s.PrioritizedPrimaryField
	require.NotNil(t, pk)
	assert.Equal(t, "ID", pk.Name)

	// 自增主键的零值会被排除在 INSERT 之外，0 号默认链就播不进去
	assert.False(t, pk.AutoIncrement)
	assert.False(t, pk.HasDefaultValue)
}

func TestSeedInsertCarriesExplicitZeroID(t *testing.T) {
	db := dryRunDB(t)

	eth := defaultChains[0]
	stmt := db.Create(&eth).Statement
	require.NotNil(t, stmt)

	// 0 号链 (Ethereum) 的 INSERT 必须显式带上 id 列
	assert.Contains(t, stmt.SQL.String(), `"id"`)
	assert.Contains(t, stmt.Vars, uint(0))
}

func TestDefaultChainsMatchRegistry(t *testing.T) {
	require.Len(t, defaultChains, 5)

	seen := make(map[uint]bool)
	for _, c := range defaultChains {
		assert.False(t, seen[c.ID], "内部链 ID 不能重复")
		seen[c.ID] = true
		assert.Equal(t, chainreg.ToNetworkChainID(c.ID), c.NetworkChainID)
		assert.Equal(t, chainreg.SymbolFor(c.NetworkChainID), c.Symbol)
		assert.EqualValues(t, 18, c.Decimals)
	}

	// 0..4 全部在场，0 是默认网络
	for id := uint(0); id <= 4; id++ {
		assert.True(t, seen[id])
	}
	assert.True(t, defaultChains[0].IsDefault)
}
