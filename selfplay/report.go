package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type plyAverage struct {
	Ply    int
	Nodes  float64
	Prunes float64
	Games  int
}

// averagePerPly averages the search work of every game at each ply.
func averagePerPly(records []gameRecord) []plyAverage {
	var averages []plyAverage
	for _, record := range records {
		for _, ply := range record.Plies {
			for len(averages) <= ply.Ply {
				averages = append(averages, plyAverage{Ply: len(averages)})
			}
			avg := &averages[ply.Ply]
			avg.Nodes += float64(ply.Nodes)
			avg.Prunes += float64(ply.Prunes)
			avg.Games++
		}
	}
	for i := range averages {
		if averages[i].Games > 0 {
			averages[i].Nodes /= float64(averages[i].Games)
			averages[i].Prunes /= float64(averages[i].Games)
		}
	}
	return averages
}

func writeReport(path string, records []gameRecord) error {
	averages := averagePerPly(records)
	s := summarize(records)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "search work per ply",
			Subtitle: "games=" + strconv.Itoa(s.Games) + " draws=" + strconv.Itoa(s.Draws),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	plies := make([]string, 0, len(averages))
	nodes := make([]opts.BarData, 0, len(averages))
	prunes := make([]opts.BarData, 0, len(averages))
	for _, avg := range averages {
		plies = append(plies, strconv.Itoa(avg.Ply+1))
		nodes = append(nodes, opts.BarData{Value: avg.Nodes})
		prunes = append(prunes, opts.BarData{Value: avg.Prunes})
	}
	bar.SetXAxis(plies).
		AddSeries("avg nodes", nodes).
		AddSeries("avg prunes", prunes)

	page := components.NewPage()
	page.AddCharts(bar)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
