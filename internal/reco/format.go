package reco

import (
	"strconv"
	"strings"
)

const (
	DefaultBanner       = "YLSの音乐推荐"
	DefaultThinkingText = "让我思考一下推荐什么喵..."

	NoDataText     = "❌ 无法获取歌曲数据，请检查歌单配置。"
	NoEligibleText = "❌ 有效歌单为空。"
)

// FormatListing renders the banner followed by one numbered entry per item
// and its reference link.
func FormatListing(banner string, items []Item) string {
	if banner == "" {
		banner = DefaultBanner
	}
	lines := make([]string, 0, 1+2*len(items))
	lines = append(lines, banner+"\n")
	for i, it := range items {
		artists := strings.Join(it.Artists, " / ")
		if artists == "" {
			artists = "未知"
		}
		lines = append(lines, strconv.Itoa(i+1)+". "+it.Title+" - "+artists)
		lines = append(lines, "   "+it.ExternalRef+"\n")
	}
	return strings.Join(lines, "\n")
}
