package classify

// Categories is the closed 8-way taxonomy. Every classified post lands in
// exactly one of these.
var Categories = []string{
	"动画/番剧",
	"游戏",
	"漫画",
	"轻小说",
	"虚拟主播/VTuber",
	"手办/周边",
	"音乐/歌曲",
	"其他",
}

// CategoryOther is the catch-all bucket.
const CategoryOther = "其他"

// fallbackRule maps a keyword group to a category. Rules are evaluated in
// order and the first match wins, so earlier groups take priority when a
// response mentions multiple topics.
type fallbackRule struct {
	terms    []string
	category string
}

var fallbackRules = []fallbackRule{
	{[]string{"动画", "番剧", "anime"}, "动画/番剧"},
	{[]string{"游戏", "game", "手游"}, "游戏"},
	{[]string{"漫画", "manga"}, "漫画"},
	{[]string{"轻小说", "小说", "novel"}, "轻小说"},
	{[]string{"vtuber", "虚拟主播", "主播"}, "虚拟主播/VTuber"},
	{[]string{"手办", "周边", "figure"}, "手办/周边"},
	{[]string{"音乐", "歌曲", "music"}, "音乐/歌曲"},
}
