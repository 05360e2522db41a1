package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// GetCacheLifespan reads CACHE_LIFESPAN in hours, default 1.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func SettingsCacheKey(businessId string) string {
	return "RealappSettings:" + businessId
}

func BookingOrderLockKey(businessId string, bookingOrderId int) string {
	return fmt.Sprintf("lock:%s:BookingOrder:%d", businessId, bookingOrderId)
}

func InvoiceSequenceKey(businessId string, prefix string) string {
	return fmt.Sprintf("InvoiceSeq:%s:%s", businessId, prefix)
}
