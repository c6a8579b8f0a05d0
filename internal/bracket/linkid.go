package bracket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sniper/internal/models"
)

// Link ids: <base>-entry, <base>-entry-<n> for range splits, <base>-sl and
// <base>-tp-<level>. Bybit caps orderLinkId at 36 characters.

func NewBaseID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(raw) > 12 {
		return raw[:12]
	}
	return raw
}

func EntryLinkID(baseID string, split int) string {
	if split <= 0 {
		return baseID + "-entry"
	}
	return fmt.Sprintf("%s-entry-%d", baseID, split)
}

func StopLossLinkID(baseID string) string {
	return baseID + "-sl"
}

func TakeProfitLinkID(baseID string, level int) string {
	return fmt.Sprintf("%s-tp-%d", baseID, level)
}

type LinkInfo struct {
	BaseID string
	Role   models.OrderRole
	Level  int
}

func ParseLinkID(linkID string) (LinkInfo, bool) {
	if strings.HasSuffix(linkID, "-sl") {
		return LinkInfo{BaseID: strings.TrimSuffix(linkID, "-sl"), Role: models.RoleStopLoss}, true
	}
	if strings.HasSuffix(linkID, "-entry") {
		return LinkInfo{BaseID: strings.TrimSuffix(linkID, "-entry"), Role: models.RoleEntry}, true
	}
	if idx := strings.LastIndex(linkID, "-tp-"); idx > 0 {
		level, err := strconv.Atoi(linkID[idx+len("-tp-"):])
		if err != nil || level < 0 {
			return LinkInfo{}, false
		}
		return LinkInfo{BaseID: linkID[:idx], Role: models.RoleTakeProfit, Level: level}, true
	}
	if idx := strings.LastIndex(linkID, "-entry-"); idx > 0 {
		split, err := strconv.Atoi(linkID[idx+len("-entry-"):])
		if err != nil || split < 1 {
			return LinkInfo{}, false
		}
		return LinkInfo{BaseID: linkID[:idx], Role: models.RoleEntry, Level: split}, true
	}
	return LinkInfo{}, false
}
