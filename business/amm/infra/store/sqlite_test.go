package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/dexforge/dexcore/business/amm/domain"
)

var (
	tokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
	alice  = common.HexToAddress("0xAA00000000000000000000000000000000000001")
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := domain.NewPairKey(tokenA, tokenB)
	pool := domain.NewPool(key, 30, time.Unix(1_700_000_000, 0))
	pool.ReserveA = uint256.NewInt(1_000_000)
	pool.ReserveB = uint256.NewInt(2_000_000)
	pool.TotalSupply = uint256.NewInt(1_414_213)
	pool.CumulativePriceA = uint256.NewInt(42)
	pool.Active = false

	positions := map[domain.PairKey]map[common.Address]*uint256.Int{
		key: {alice: uint256.NewInt(1_414_213)},
	}

	require.NoError(t, s.Save(ctx, []*domain.Pool{pool}, positions))

	pools, gotPositions, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	got := pools[0]
	require.Equal(t, tokenA, got.TokenA)
	require.Equal(t, tokenB, got.TokenB)
	require.Equal(t, uint64(1_000_000), got.ReserveA.Uint64())
	require.Equal(t, uint64(2_000_000), got.ReserveB.Uint64())
	require.Equal(t, uint64(1_414_213), got.TotalSupply.Uint64())
	require.Equal(t, uint16(30), got.FeeBps)
	require.Equal(t, uint64(42), got.CumulativePriceA.Uint64())
	require.Equal(t, uint64(1_700_000_000), got.BlockTimestampLast)
	require.False(t, got.Active)

	require.Equal(t, uint64(1_414_213), gotPositions[key][alice].Uint64())
}

func TestSaveReplacesPriorSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := domain.NewPairKey(tokenA, tokenB)
	pool := domain.NewPool(key, 30, time.Now())
	pool.ReserveA = uint256.NewInt(100)
	pool.ReserveB = uint256.NewInt(100)
	pool.TotalSupply = uint256.NewInt(100)

	require.NoError(t, s.Save(ctx, []*domain.Pool{pool}, nil))

	pool.ReserveA = uint256.NewInt(500)
	require.NoError(t, s.Save(ctx, []*domain.Pool{pool}, nil))

	pools, _, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, uint64(500), pools[0].ReserveA.Uint64())
}

func TestLoadEmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	pools, positions, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, pools)
	require.Empty(t, positions)
}

func TestStoresFull256BitAmounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := domain.NewPairKey(tokenA, tokenB)
	pool := domain.NewPool(key, 30, time.Now())
	huge := new(uint256.Int).SetAllOne()
	pool.ReserveA = huge
	pool.ReserveB = uint256.NewInt(1)
	pool.TotalSupply = uint256.NewInt(1)

	require.NoError(t, s.Save(ctx, []*domain.Pool{pool}, nil))

	pools, _, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, pools[0].ReserveA.Eq(huge))
}
