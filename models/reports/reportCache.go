package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/sirupsen/logrus"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	biz, _ := utils.GetBusinessIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"business_id":    biz,
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow report")
}

// reportCacheKey is stable for equal filters: the filter is serialized as JSON.
func reportCacheKey(name, businessId string, filter any, today time.Time) (string, error) {
	f, err := utils.MarshalToJSON(filter)
	if err != nil {
		return "", err
	}
	return "Report:" + name + ":" + businessId + ":" + today.Format("2006-01-02") + ":" + f, nil
}

// cacheGet treats redis failures as a miss.
func cacheGet[T any](ctx context.Context, key string, dest *T) bool {
	if !reportCacheEnabled() {
		return false
	}
	ok, err := config.GetRedisObject(ctx, key, dest)
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{"key": key}).Warn("report cache read failed: " + err.Error())
		return false
	}
	return ok
}

func cacheSet(ctx context.Context, key string, obj any) {
	if !reportCacheEnabled() {
		return
	}
	if err := config.SetRedisObject(ctx, key, obj, reportCacheTTL()); err != nil {
		config.GetLogger().WithFields(logrus.Fields{"key": key}).Warn("report cache write failed: " + err.Error())
	}
}
