package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
)

const (
	fundingPrefix = "funding:"
	futuresPrefix = "futures:"
	spotPrefix    = "spot:"

	redisOpTimeout = 2 * time.Second
)

// Redis go-redis 实现的新鲜度缓存，多个进程可共享同一份行情。
// 键结构: funding:<exchange>:<symbol> 等 hash，EXPIRE 实现 TTL。
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) SaveFundingRate(exchange, symbol string, rate float64, nextFundingTime int64) {
	if nextFundingTime <= 0 {
		nextFundingTime = NextFundingTimeAfter(time.Now())
	}
	k := fundingPrefix + normalizeExchange(exchange) + ":" + normalizeSymbol(symbol)
	r.save(k, map[string]any{
		"rate":            strconv.FormatFloat(rate, 'f', -1, 64),
		"nextFundingTime": strconv.FormatInt(nextFundingTime, 10),
		"updatedAt":       strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

func (r *Redis) SaveFuturesPrice(exchange, symbol string, price float64) {
	k := futuresPrefix + normalizeExchange(exchange) + ":" + normalizeSymbol(symbol)
	r.save(k, map[string]any{
		"price":     strconv.FormatFloat(price, 'f', -1, 64),
		"updatedAt": strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

func (r *Redis) SaveSpotPrice(exchange, symbol string, price float64) {
	k := spotPrefix + normalizeExchange(exchange) + ":" + normalizeSymbol(symbol)
	r.save(k, map[string]any{
		"price":     strconv.FormatFloat(price, 'f', -1, 64),
		"updatedAt": strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

func (r *Redis) save(key string, fields map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis store write failed")
	}
}

func (r *Redis) FundingRate(exchange, symbol string) (float64, bool) {
	return r.getFloat(model.FieldFunding, exchange, symbol, "rate")
}

func (r *Redis) NextFundingTime(exchange, symbol string) (int64, bool) {
	k := fundingPrefix + normalizeExchange(exchange) + ":" + normalizeSymbol(symbol)
	raw, ok := r.getField(k, "nextFundingTime")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (r *Redis) FuturesPrice(exchange, symbol string) (float64, bool) {
	return r.getFloat(model.FieldFuturesPrice, exchange, symbol, "price")
}

func (r *Redis) SpotPrice(exchange, symbol string) (float64, bool) {
	return r.getFloat(model.FieldSpotPrice, exchange, symbol, "price")
}

func (r *Redis) getFloat(field model.Field, exchange, symbol, hashField string) (float64, bool) {
	var prefix string
	switch field {
	case model.FieldFunding:
		prefix = fundingPrefix
	case model.FieldFuturesPrice:
		prefix = futuresPrefix
	default:
		prefix = spotPrefix
	}
	raw, ok := r.getField(prefix+normalizeExchange(exchange)+":"+normalizeSymbol(symbol), hashField)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *Redis) getField(key, field string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.rdb.HGet(ctx, key, field).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

var _ port.MarketStore = (*Redis)(nil)
