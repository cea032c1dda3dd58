package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/prometheus/common/expfmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Thresholds for color coding
const (
	HighUsage   = 80.0
	MediumUsage = 50.0
)

var configPaths = []string{
	"/etc/mimedb/config.toml",
	"../config.toml",
	"./config.toml",
}

// settings is what the monitor needs from the server's config.toml.
type settings struct {
	configFile     string
	baseURL        string
	metricsURL     string
	metricsEnabled bool
}

// loadSettings reads the first config file found in paths.
func loadSettings(paths []string) (settings, error) {
	var tree *toml.Tree
	var err error
	var s settings
	for _, path := range paths {
		tree, err = toml.LoadFile(path)
		if err == nil {
			s.configFile = path
			break
		}
	}
	if tree == nil {
		return s, fmt.Errorf("no config file found in %v: %w", paths, err)
	}

	host, _ := tree.GetDefault("server.bind_ip", "localhost").(string)
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	listen := fmt.Sprint(tree.GetDefault("server.listen_address", "8080"))
	if h, port, err := net.SplitHostPort(listen); err == nil {
		if h != "" {
			host = h
		}
		listen = port
	}

	s.baseURL = "http://" + net.JoinHostPort(host, listen)
	path, _ := tree.GetDefault("metrics.path", "/metrics").(string)
	s.metricsURL = s.baseURL + path
	s.metricsEnabled, _ = tree.GetDefault("metrics.enabled", true).(bool)
	return s, nil
}

// ProcessInfo holds information about the mimedb server process.
type ProcessInfo struct {
	PID         int32
	Name        string
	CPUPercent  float64
	MemPercent  float32
	CommandLine string
	Uptime      string
	Status      string
}

var client = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	},
}

func fetchMetrics(url string) (map[string]float64, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()
	return parseMetrics(io.LimitReader(resp.Body, 1024*1024))
}

var relevantPrefixes = []string{
	"mimedb_",
	"requests_total",
	"memory_usage_bytes",
	"cpu_usage_percent",
	"goroutines",
}

// parseMetrics keeps the mimedb series from a Prometheus text exposition.
// Labelled series are keyed as name{k="v",...}; histograms contribute their count.
func parseMetrics(r io.Reader) (map[string]float64, error) {
	parser := &expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}

	metrics := make(map[string]float64)
	for name, mf := range families {
		relevant := false
		for _, prefix := range relevantPrefixes {
			if strings.HasPrefix(name, prefix) {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}

		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			case m.GetUntyped() != nil:
				value = m.GetUntyped().GetValue()
			default:
				continue
			}

			key := name
			if len(m.GetLabel()) > 0 {
				labels := make([]string, 0, len(m.GetLabel()))
				for _, label := range m.GetLabel() {
					labels = append(labels, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
				}
				key = fmt.Sprintf("%s{%s}", name, strings.Join(labels, ","))
			}
			metrics[key] = value
		}
	}
	return metrics, nil
}

// fetchIndex returns the published MIME type to extensions table.
func fetchIndex(baseURL string) (map[string][]string, error) {
	resp, err := client.Get(baseURL + "/api/v1/index")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch index: %s", resp.Status)
	}

	var body struct {
		Backward map[string][]string `json:"backward"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return body.Backward, nil
}

// typeRow is one line of the types table.
type typeRow struct {
	Type       string
	Extensions string
}

// filterTypes returns the rows whose type or extensions contain query, sorted by type.
func filterTypes(index map[string][]string, query string) []typeRow {
	query = strings.ToLower(strings.TrimSpace(query))
	rows := make([]typeRow, 0, len(index))
	for mime, exts := range index {
		joined := strings.Join(exts, " ")
		if query != "" && !strings.Contains(mime, query) && !strings.Contains(strings.ToLower(joined), query) {
			continue
		}
		rows = append(rows, typeRow{Type: mime, Extensions: joined})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Type < rows[j].Type })
	return rows
}

func fetchSystemData() (float64, float64, int, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to fetch memory data: %w", err)
	}

	c, err := cpu.Percent(0, false)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to fetch CPU data: %w", err)
	}

	cores, err := cpu.Counts(true)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to fetch CPU cores: %w", err)
	}

	cpuUsage := 0.0
	if len(c) > 0 {
		cpuUsage = c[0]
	}
	return v.UsedPercent, cpuUsage, cores, nil
}

// fetchServerInfo finds the running mimedb server, skipping this monitor.
func fetchServerInfo() (*ProcessInfo, error) {
	processes, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processes: %w", err)
	}

	self := int32(os.Getpid())
	for _, p := range processes {
		if p.Pid == self {
			continue
		}
		name, err := p.Name()
		if err != nil || filepath.Base(name) != "mimedb" {
			continue
		}

		info := &ProcessInfo{PID: p.Pid, Name: name}
		info.CPUPercent, _ = p.CPUPercent()
		info.MemPercent, _ = p.MemoryPercent()
		info.CommandLine, _ = p.Cmdline()
		if created, err := p.CreateTime(); err == nil {
			info.Uptime = time.Since(time.UnixMilli(created)).Truncate(time.Second).String()
		}
		if status, err := p.Status(); err == nil {
			info.Status = strings.Join(status, ",")
		}
		return info, nil
	}
	return nil, fmt.Errorf("mimedb process not found")
}

func main() {
	s, err := loadSettings(configPaths)
	if err != nil {
		log.Fatalf("Error loading config file: %v\nPlease create a config.toml in one of the following locations:\n%v", err, configPaths)
	}
	log.Printf("Using config file: %s", s.configFile)

	if err := runUI(s); err != nil {
		log.Fatalf("Error running application: %v", err)
	}
}
