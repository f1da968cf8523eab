package diagnosis

import (
	"fmt"
	"strings"
)

const (
	RegionUSEast1 = "us-east-1"
	RegionUSWest2 = "us-west-2"
)

// InspectionURL links to the provider's bot explorer for manual debugging.
func InspectionURL(region, botID string) string {
	return fmt.Sprintf("https://%s.recall.ai/dashboard/explorer/bot/%s", region, botID)
}

// ResolveRegion returns configured when set, otherwise infers the region
// from the provider API base URL.
func ResolveRegion(configured, baseURL string) string {
	if configured != "" {
		return configured
	}
	if strings.Contains(baseURL, RegionUSWest2) {
		return RegionUSWest2
	}
	return RegionUSEast1
}
