package monitor

import (
	"context"
	"encoding/json"
	"time"

	"bluecarbon-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	nationalRollupKey = "rollup:national"
	regionalRollupKey = "rollup:regional"
	rollupWindow      = 30 * 24 * time.Hour
)

// Rollups computes aggregate NDVI views. Results are cached in Redis for a
// short TTL; when Redis is absent the aggregates are computed on every call.
type Rollups struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

// NationalRollup is the 30-day country-wide view. The average is weighted by
// project area so a 500 ha estuary is not drowned out by plot-sized sites.
type NationalRollup struct {
	WindowDays       int            `json:"window_days"`
	ScanCount        int            `json:"scan_count"`
	ProjectCount     int            `json:"project_count"`
	WeightedAvgNDVI  float64        `json:"weighted_avg_ndvi"`
	Buckets          []HealthBucket `json:"buckets"`
	UnresolvedAlerts int64          `json:"unresolved_alerts"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// HealthBucket aggregates the window's scans falling into one health class.
type HealthBucket struct {
	Status    string  `json:"status"`
	ScanCount int     `json:"scan_count"`
	Percent   float64 `json:"percent"`
	AreaHa    float64 `json:"area_ha"`
}

// RegionalRollup aggregates each region's projects on their latest scan.
type RegionalRollup struct {
	Regions     []RegionSummary `json:"regions"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// RegionSummary is one region's latest-scan average.
type RegionSummary struct {
	Region       string  `json:"region"`
	ProjectCount int     `json:"project_count"`
	AvgNDVI      float64 `json:"avg_ndvi"`
}

// National returns the cached 30-day rollup, computing it on a cache miss.
func (r *Rollups) National(ctx context.Context) (*NationalRollup, error) {
	var cached NationalRollup
	if r.cacheGet(ctx, nationalRollupKey, &cached) {
		return &cached, nil
	}

	since := time.Now().Add(-rollupWindow)

	type scanRow struct {
		NDVIValue float64
		AreaHa    float64
		ProjectID string
	}
	var rows []scanRow
	err := r.DB.WithContext(ctx).
		Table("ndvi_scans").
		Select("ndvi_scans.ndvi_value, projects.area_ha, ndvi_scans.project_id").
		Joins("JOIN projects ON projects.id = ndvi_scans.project_id").
		Where("ndvi_scans.scan_date >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var weightedSum, weightTotal float64
	seen := map[string]struct{}{}
	bucketCount := map[string]int{}
	bucketArea := map[string]float64{}
	for _, row := range rows {
		weight := row.AreaHa
		if weight <= 0 {
			weight = 1
		}
		weightedSum += row.NDVIValue * weight
		weightTotal += weight
		seen[row.ProjectID] = struct{}{}

		status := models.HealthStatusFor(row.NDVIValue)
		bucketCount[status]++
		bucketArea[status] += row.AreaHa
	}
	avg := 0.0
	if weightTotal > 0 {
		avg = weightedSum / weightTotal
	}

	var buckets []HealthBucket
	for _, status := range []string{models.HealthHealthy, models.HealthModerate, models.HealthPoor, models.HealthCritical} {
		count := bucketCount[status]
		if count == 0 {
			continue
		}
		buckets = append(buckets, HealthBucket{
			Status:    status,
			ScanCount: count,
			Percent:   100 * float64(count) / float64(len(rows)),
			AreaHa:    bucketArea[status],
		})
	}

	var unresolved int64
	if err := r.DB.WithContext(ctx).Model(&models.Alert{}).
		Where("is_resolved = ?", false).
		Count(&unresolved).Error; err != nil {
		return nil, err
	}

	rollup := &NationalRollup{
		WindowDays:       int(rollupWindow / (24 * time.Hour)),
		ScanCount:        len(rows),
		ProjectCount:     len(seen),
		WeightedAvgNDVI:  avg,
		Buckets:          buckets,
		UnresolvedAlerts: unresolved,
		GeneratedAt:      time.Now(),
	}
	r.cacheSet(ctx, nationalRollupKey, rollup)
	return rollup, nil
}

// Regional returns per-region averages over each project's latest scan. The
// project snapshot column is exactly that latest value, so no window scan is
// needed here.
func (r *Rollups) Regional(ctx context.Context) (*RegionalRollup, error) {
	var cached RegionalRollup
	if r.cacheGet(ctx, regionalRollupKey, &cached) {
		return &cached, nil
	}

	var rows []RegionSummary
	err := r.DB.WithContext(ctx).
		Model(&models.Project{}).
		Select("region, COUNT(*) AS project_count, AVG(ndvi_value) AS avg_ndvi").
		Where("ndvi_value IS NOT NULL").
		Group("region").
		Order("region ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	rollup := &RegionalRollup{Regions: rows, GeneratedAt: time.Now()}
	r.cacheSet(ctx, regionalRollupKey, rollup)
	return rollup, nil
}

// Invalidate drops cached rollups. Called after ingestion so dashboards see
// fresh numbers within one request rather than one TTL.
func (r *Rollups) Invalidate(ctx context.Context) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, nationalRollupKey, regionalRollupKey).Err(); err != nil {
		log.Warn().Err(err).Msg("rollup cache invalidation failed")
	}
}

func (r *Rollups) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if r.Redis == nil {
		return false
	}
	raw, err := r.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("rollup cache read failed")
		}
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (r *Rollups) cacheSet(ctx context.Context, key string, v interface{}) {
	if r.Redis == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, key, raw, r.TTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rollup cache write failed")
	}
}
