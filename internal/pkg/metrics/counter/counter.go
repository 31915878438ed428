package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/cache"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/database"
)

const trafficHitsKey = "traffic:counters:hits"

// Inbound channels whose hits are counted.
const (
	ChannelSMS      = "sms"
	ChannelDatasync = "datasync"
	ChannelSecureD  = "secure_d"
)

// columnFor maps a channel to its cumulative column on traffic_data.
var columnFor = map[string]string{
	ChannelSMS:      "sms_hit_count",
	ChannelDatasync: "datasync_hit_count",
	ChannelSecureD:  "secure_d_hit_count",
}

type increment struct {
	channel string
	column  string
	delta   int64
}

// AddHit increments the pending hit counter for a channel in Redis
func AddHit(channel string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, trafficHitsKey, channel, 1).Err()
}

// FlushAll drains the pending hit counters atomically and applies the batched
// increments to the traffic_data totals. Uses RENAME to a temporary key for
// atomic drain without losing in-flight increments; if the apply fails, the
// drained counts are credited back to the live hash instead of being dropped.
func FlushAll() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", trafficHitsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", trafficHitsKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		// Counts still live under tmpKey; the next flush cannot pick them up,
		// so keep them for inspection rather than deleting blind.
		return err
	}

	incs := parseIncrements(data)
	if len(incs) == 0 {
		rdb.Del(ctx, tmpKey)
		return nil
	}

	if err := applyIncrements(database.GetDB(), incs); err != nil {
		// Credit the drained counts back so nothing is lost.
		for _, inc := range incs {
			if rerr := rdb.HIncrBy(ctx, trafficHitsKey, inc.channel, inc.delta).Err(); rerr != nil {
				log.Errorf("[Counter] Failed to restore %d %s hits after flush error: %v", inc.delta, inc.channel, rerr)
			}
		}
		rdb.Del(ctx, tmpKey)
		return err
	}

	rdb.Del(ctx, tmpKey)
	return nil
}

// parseIncrements filters the drained hash down to known channels with
// non-zero numeric counts, in stable channel order.
func parseIncrements(data map[string]string) []increment {
	incs := make([]increment, 0, len(data))
	for channel, v := range data {
		column, ok := columnFor[channel]
		if !ok {
			continue
		}
		delta, err := strconv.ParseInt(v, 10, 64)
		if err != nil || delta == 0 {
			continue
		}
		incs = append(incs, increment{channel: channel, column: column, delta: delta})
	}
	sort.Slice(incs, func(i, j int) bool { return incs[i].channel < incs[j].channel })
	return incs
}

// incrementSQL builds the single-row batched UPDATE.
func incrementSQL(incs []increment) (string, []interface{}) {
	sets := make([]string, 0, len(incs))
	args := make([]interface{}, 0, len(incs))
	for _, inc := range incs {
		sets = append(sets, fmt.Sprintf("%s = %s + ?", inc.column, inc.column))
		args = append(args, inc.delta)
	}
	// Single row; no WHERE needed.
	return "UPDATE traffic_data SET " + strings.Join(sets, ", "), args
}

// applyIncrements applies the batch, seeding the traffic_data row first if no
// webhook has created it yet. Zero affected rows must not swallow the counts.
func applyIncrements(db *gorm.DB, incs []increment) error {
	sql, args := incrementSQL(incs)

	res := db.Exec(sql, args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if err := db.Create(&models.TrafficData{}).Error; err != nil {
		return err
	}
	return db.Exec(sql, args...).Error
}
