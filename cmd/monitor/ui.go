package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// cache holds the latest polled state, read by the UI loop.
var cache struct {
	mu        sync.RWMutex
	memUsage  float64
	cpuUsage  float64
	cores     int
	metrics   map[string]float64
	server    *ProcessInfo
	index     map[string][]string
	lastError string
}

func poll(s settings) {
	memUsage, cpuUsage, cores, sysErr := fetchSystemData()
	var metrics map[string]float64
	var metricsErr error
	if s.metricsEnabled {
		metrics, metricsErr = fetchMetrics(s.metricsURL)
	}
	server, _ := fetchServerInfo()
	index, indexErr := fetchIndex(s.baseURL)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if sysErr == nil {
		cache.memUsage, cache.cpuUsage, cache.cores = memUsage, cpuUsage, cores
	}
	if metricsErr == nil && metrics != nil {
		cache.metrics = metrics
	}
	cache.server = server
	if indexErr == nil {
		cache.index = index
	}

	cache.lastError = ""
	for _, err := range []error{sysErr, metricsErr, indexErr} {
		if err != nil {
			cache.lastError = err.Error()
			break
		}
	}
}

func usageCell(v float64) *tview.TableCell {
	cell := tview.NewTableCell(fmt.Sprintf("%.2f%%", v))
	switch {
	case v > HighUsage:
		cell.SetTextColor(tcell.ColorRed)
	case v > MediumUsage:
		cell.SetTextColor(tcell.ColorYellow)
	default:
		cell.SetTextColor(tcell.ColorGreen)
	}
	return cell
}

func header(t *tview.Table, titles ...string) {
	for i, title := range titles {
		t.SetCell(0, i, tview.NewTableCell(title).SetAttributes(tcell.AttrBold))
	}
}

func updateSystemTable(t *tview.Table) {
	t.Clear()
	header(t, "Metric", "Value")
	t.SetCell(1, 0, tview.NewTableCell("CPU Usage"))
	t.SetCell(1, 1, usageCell(cache.cpuUsage))
	t.SetCell(2, 0, tview.NewTableCell("Memory Usage"))
	t.SetCell(2, 1, usageCell(cache.memUsage))
	t.SetCell(3, 0, tview.NewTableCell("CPU Cores"))
	t.SetCell(3, 1, tview.NewTableCell(fmt.Sprintf("%d", cache.cores)))
	t.SetCell(4, 0, tview.NewTableCell("Last Error"))
	t.SetCell(4, 1, tview.NewTableCell(cache.lastError).SetTextColor(tcell.ColorRed))
}

func updateMetricsTable(t *tview.Table) {
	t.Clear()
	header(t, "Metric", "Value")
	keys := make([]string, 0, len(cache.metrics))
	for k := range cache.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		t.SetCell(i+1, 0, tview.NewTableCell(k))
		t.SetCell(i+1, 1, tview.NewTableCell(fmt.Sprintf("%.2f", cache.metrics[k])))
	}
}

func updateServerTable(t *tview.Table) {
	t.Clear()
	header(t, "Property", "Value")
	p := cache.server
	if p == nil {
		t.SetCell(1, 0, tview.NewTableCell("Status"))
		t.SetCell(1, 1, tview.NewTableCell("not running").SetTextColor(tcell.ColorRed))
		return
	}
	rows := [][2]string{
		{"PID", fmt.Sprintf("%d", p.PID)},
		{"CPU%", fmt.Sprintf("%.2f", p.CPUPercent)},
		{"Mem%", fmt.Sprintf("%.2f", p.MemPercent)},
		{"Command", p.CommandLine},
		{"Uptime", p.Uptime},
		{"Status", p.Status},
		{"Heap", humanize.IBytes(uint64(cache.metrics["memory_usage_bytes"]))},
		{"Requests", humanize.Comma(int64(sumSeries(cache.metrics, "requests_total")))},
		{"Types", fmt.Sprintf("%.0f", cache.metrics["mimedb_types"])},
		{"Extensions", fmt.Sprintf("%.0f", cache.metrics["mimedb_extensions"])},
	}
	for i, r := range rows {
		t.SetCell(i+1, 0, tview.NewTableCell(r[0]))
		t.SetCell(i+1, 1, tview.NewTableCell(r[1]))
	}
}

// sumSeries adds up every labelled series of the named metric.
func sumSeries(metrics map[string]float64, name string) float64 {
	var total float64
	for k, v := range metrics {
		if k == name || strings.HasPrefix(k, name+"{") {
			total += v
		}
	}
	return total
}

func updateTypesTable(t *tview.Table, query string) {
	t.Clear()
	header(t, "MIME Type", "Extensions")
	for i, r := range filterTypes(cache.index, query) {
		t.SetCell(i+1, 0, tview.NewTableCell(r.Type))
		t.SetCell(i+1, 1, tview.NewTableCell(r.Extensions).SetExpansion(1))
	}
}

func newTable(title string) *tview.Table {
	t := tview.NewTable().SetBorders(false)
	t.SetTitle(" [::b]" + title + " ").SetBorder(true)
	return t
}

func runUI(s settings) error {
	app := tview.NewApplication()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysTable := newTable("System Data")
	metricsTable := newTable("Prometheus Metrics")
	sysPage := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(sysTable, 7, 0, false).
		AddItem(metricsTable, 0, 1, false)

	serverTable := newTable("mimedb Details")

	typesTable := newTable("MIME Types")
	typesTable.SetSelectable(true, false)
	filter := tview.NewInputField().SetLabel("Filter: ")
	typesPage := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(filter, 1, 0, false).
		AddItem(typesTable, 0, 1, true)

	pages := tview.NewPages().
		AddPage("system", sysPage, true, true).
		AddPage("server", serverTable, true, false).
		AddPage("types", typesPage, true, false)

	redraw := func() {
		cache.mu.RLock()
		defer cache.mu.RUnlock()
		switch name, _ := pages.GetFrontPage(); name {
		case "system":
			updateSystemTable(sysTable)
			updateMetricsTable(metricsTable)
		case "server":
			updateServerTable(serverTable)
		case "types":
			updateTypesTable(typesTable, filter.GetText())
		}
	}
	filter.SetChangedFunc(func(string) { redraw() })
	filter.SetDoneFunc(func(tcell.Key) { app.SetFocus(typesTable) })

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if app.GetFocus() == filter {
			return event
		}
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q', 'Q':
				cancel()
				app.Stop()
				return nil
			case 's', 'S':
				pages.SwitchToPage("system")
			case 'm', 'M':
				pages.SwitchToPage("server")
			case 't', 'T':
				pages.SwitchToPage("types")
				app.SetFocus(typesTable)
			case '/':
				if name, _ := pages.GetFrontPage(); name == "types" {
					app.SetFocus(filter)
					return nil
				}
			}
			redraw()
		}
		return event
	})

	go func() {
		poll(s)
		app.QueueUpdateDraw(redraw)

		pollTicker := time.NewTicker(5 * time.Second)
		defer pollTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pollTicker.C:
				poll(s)
				app.QueueUpdateDraw(redraw)
			}
		}
	}()

	return app.SetRoot(pages, true).EnableMouse(true).Run()
}
