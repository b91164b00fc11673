package decisioning

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Allocation maps a (client, campaign, visitor) triple onto a stable,
// uniformly distributed value in [0, 100). The same visitor always lands on
// the same allocation for a campaign, so branch selection is deterministic
// across repeated calls. xxhash64 of "client.campaignId.visitorId", modulo
// 10000, scaled to two decimal places.
func Allocation(client string, campaignID int64, visitorID string) float64 {
	key := fmt.Sprintf("%s.%d.%s", client, campaignID, visitorID)
	return float64(xxhash.Sum64String(key)%10000) / 100
}
