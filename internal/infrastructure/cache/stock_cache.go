package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/compras-api/internal/application/stock"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/pkg/logger"
)

var _ stock.BalanceCache = (*StockCache)(nil)

// StockCache caché cache-aside de saldos por sucursal sobre Redis. Un fallo
// de Redis nunca rompe la consulta: se degrada a ir directo a la BD y se
// registra en debug.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewStockCache construye el caché. ttl acota la ventana de lectura obsoleta
// si una invalidación se pierde.
func NewStockCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *StockCache {
	return &StockCache{client: client, ttl: ttl, log: log}
}

func key(branchID string) string {
	return "stock:branch:" + branchID
}

// GetBranch devuelve los saldos cacheados de la sucursal, si hay entrada fresca.
func (c *StockCache) GetBranch(ctx context.Context, branchID string) ([]*entity.BranchBalance, bool) {
	raw, err := c.client.Get(ctx, key(branchID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug().Err(err).Str("branch_id", branchID).Msg("cache get falló")
		}
		return nil, false
	}
	var balances []*entity.BranchBalance
	if err := json.Unmarshal(raw, &balances); err != nil {
		c.log.Debug().Err(err).Str("branch_id", branchID).Msg("cache entry corrupta; se descarta")
		_ = c.client.Del(ctx, key(branchID)).Err()
		return nil, false
	}
	return balances, true
}

// SetBranch puebla la entrada de la sucursal con TTL.
func (c *StockCache) SetBranch(ctx context.Context, branchID string, balances []*entity.BranchBalance) {
	raw, err := json.Marshal(balances)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(branchID), raw, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Str("branch_id", branchID).Msg("cache set falló")
	}
}

// Invalidate borra la entrada de la sucursal; los casos de uso de escritura
// la llaman tras cada commit que toca sus saldos.
func (c *StockCache) Invalidate(ctx context.Context, branchID string) {
	if err := c.client.Del(ctx, key(branchID)).Err(); err != nil {
		c.log.Debug().Err(err).Str("branch_id", branchID).Msg("cache invalidate falló")
	}
}
