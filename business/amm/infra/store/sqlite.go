// Package store persists pool-ledger snapshots to sqlite so pool state and
// LP positions survive restarts.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/internal/apperror"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	token_a              TEXT NOT NULL,
	token_b              TEXT NOT NULL,
	reserve_a            TEXT NOT NULL,
	reserve_b            TEXT NOT NULL,
	total_supply         TEXT NOT NULL,
	fee_bps              INTEGER NOT NULL,
	cumulative_price_a   TEXT NOT NULL,
	cumulative_price_b   TEXT NOT NULL,
	block_timestamp_last INTEGER NOT NULL,
	active               INTEGER NOT NULL,
	PRIMARY KEY (token_a, token_b)
);

CREATE TABLE IF NOT EXISTS positions (
	token_a TEXT NOT NULL,
	token_b TEXT NOT NULL,
	owner   TEXT NOT NULL,
	shares  TEXT NOT NULL,
	PRIMARY KEY (token_a, token_b, owner)
);
`

// SnapshotStore saves and loads full pool-ledger snapshots. Amounts are
// stored as decimal strings since sqlite has no 256-bit integer type.
type SnapshotStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreError, "open snapshot database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperror.Wrap(err, apperror.CodeStoreError, "apply snapshot schema")
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with the given state atomically.
func (s *SnapshotStore) Save(ctx context.Context, pools []*domain.Pool, positions map[domain.PairKey]map[common.Address]*uint256.Int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStoreError, "begin snapshot save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pools`); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreError, "clear pools")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreError, "clear positions")
	}

	for _, p := range pools {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pools (
				token_a, token_b, reserve_a, reserve_b, total_supply,
				fee_bps, cumulative_price_a, cumulative_price_b,
				block_timestamp_last, active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.TokenA.Hex(), p.TokenB.Hex(),
			p.ReserveA.Dec(), p.ReserveB.Dec(), p.TotalSupply.Dec(),
			p.FeeBps,
			p.CumulativePriceA.Dec(), p.CumulativePriceB.Dec(),
			int64(p.BlockTimestampLast), boolToInt(p.Active),
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeStoreError, "insert pool")
		}
	}

	for key, holders := range positions {
		for owner, shares := range holders {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO positions (token_a, token_b, owner, shares)
				VALUES (?, ?, ?, ?)`,
				key.A.Hex(), key.B.Hex(), owner.Hex(), shares.Dec(),
			)
			if err != nil {
				return apperror.Wrap(err, apperror.CodeStoreError, "insert position")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreError, "commit snapshot save")
	}
	return nil
}

// Load reads the stored snapshot. Returns empty state when the database is
// fresh.
func (s *SnapshotStore) Load(ctx context.Context) ([]*domain.Pool, map[domain.PairKey]map[common.Address]*uint256.Int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_a, token_b, reserve_a, reserve_b, total_supply,
		       fee_bps, cumulative_price_a, cumulative_price_b,
		       block_timestamp_last, active
		FROM pools`)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeStoreError, "query pools")
	}
	defer rows.Close()

	var pools []*domain.Pool
	for rows.Next() {
		var (
			tokenA, tokenB       string
			reserveA, reserveB   string
			totalSupply          string
			feeBps               uint16
			cumA, cumB           string
			blockTimestampLast   int64
			active               int
		)
		if err := rows.Scan(&tokenA, &tokenB, &reserveA, &reserveB, &totalSupply,
			&feeBps, &cumA, &cumB, &blockTimestampLast, &active); err != nil {
			return nil, nil, apperror.Wrap(err, apperror.CodeStoreError, "scan pool row")
		}

		key := domain.NewPairKey(common.HexToAddress(tokenA), common.HexToAddress(tokenB))
		pool := domain.NewPool(key, feeBps, time.Unix(blockTimestampLast, 0))
		if pool.ReserveA, err = parseAmount(reserveA); err != nil {
			return nil, nil, err
		}
		if pool.ReserveB, err = parseAmount(reserveB); err != nil {
			return nil, nil, err
		}
		if pool.TotalSupply, err = parseAmount(totalSupply); err != nil {
			return nil, nil, err
		}
		if pool.CumulativePriceA, err = parseAmount(cumA); err != nil {
			return nil, nil, err
		}
		if pool.CumulativePriceB, err = parseAmount(cumB); err != nil {
			return nil, nil, err
		}
		pool.Active = active != 0
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeStoreError, "iterate pool rows")
	}

	positions, err := s.loadPositions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pools, positions, nil
}

func (s *SnapshotStore) loadPositions(ctx context.Context) (map[domain.PairKey]map[common.Address]*uint256.Int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token_a, token_b, owner, shares FROM positions`)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreError, "query positions")
	}
	defer rows.Close()

	positions := make(map[domain.PairKey]map[common.Address]*uint256.Int)
	for rows.Next() {
		var tokenA, tokenB, owner, shares string
		if err := rows.Scan(&tokenA, &tokenB, &owner, &shares); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStoreError, "scan position row")
		}

		key := domain.NewPairKey(common.HexToAddress(tokenA), common.HexToAddress(tokenB))
		bal, err := parseAmount(shares)
		if err != nil {
			return nil, err
		}

		holders, ok := positions[key]
		if !ok {
			holders = make(map[common.Address]*uint256.Int)
			positions[key] = holders
		}
		holders[common.HexToAddress(owner)] = bal
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreError, "iterate position rows")
	}
	return positions, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStoreError, "parse stored amount")
	}
	return v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
