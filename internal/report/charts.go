// Package report renders a run's statistics as a self-contained HTML page
// with interactive charts.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ngascope/ngascope/internal/types"
)

// topKeywordCount bounds the keyword bar chart to the leaders.
const topKeywordCount = 10

// WriteCharts renders the category distribution pie and keyword bar chart
// into one HTML file and returns its path.
func WriteCharts(report *types.Report, dir string, logger *slog.Logger) (string, error) {
	page := components.NewPage()
	page.SetPageTitle("NGA帖子分类统计")
	page.AddCharts(
		categoryPie(report.Statistics),
		keywordBar(report.Statistics),
	)

	path := filepath.Join(dir, fmt.Sprintf("nga_charts_%s.html", report.GeneratedAt.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("render charts: %w", err)
	}

	logger.Info("chart report written", "path", path)
	return path, nil
}

func categoryPie(s types.Statistics) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "分类分布"}),
	)

	items := make([]opts.PieData, 0, len(s.Categories))
	for _, kc := range sortedCounts(s.Categories) {
		items = append(items, opts.PieData{Name: kc.key, Value: kc.count})
	}
	pie.AddSeries("帖子数", items)
	return pie
}

func keywordBar(s types.Statistics) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "热门关键词"}),
	)

	counts := sortedCounts(s.Keywords)
	if len(counts) > topKeywordCount {
		counts = counts[:topKeywordCount]
	}

	var x []string
	var y []opts.BarData
	for _, kc := range counts {
		x = append(x, kc.key)
		y = append(y, opts.BarData{Value: kc.count})
	}
	bar.SetXAxis(x).AddSeries("出现次数", y)
	return bar
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
