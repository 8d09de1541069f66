// Package health reports on the local echochat install and its backend.
package health

import (
	"errors"
	"net"
	"net/url"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultDialTimeout = 2 * time.Second

// Options selects what Collect inspects.
type Options struct {
	ConfigPath string
	BaseURL    string
	Push       string
	Selection  string

	// DialTimeout bounds the backend reachability probe.
	DialTimeout time.Duration
}

func (o Options) normalize() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	return o
}

// Snapshot is the report printed by `echochat doctor`.
type Snapshot struct {
	Status     string       `yaml:"status"`
	Goroutines int          `yaml:"goroutines"`
	Memory     MemoryInfo   `yaml:"memory"`
	Runtime    RuntimeInfo  `yaml:"runtime"`
	Config     *ConfigInfo  `yaml:"config,omitempty"`
	Backend    *BackendInfo `yaml:"backend,omitempty"`
	Timestamp  string       `yaml:"timestamp"`
}

type MemoryInfo struct {
	AllocMB float64 `yaml:"allocMB"`
	SysMB   float64 `yaml:"sysMB"`
	NumGC   uint32  `yaml:"numGC"`
}

type RuntimeInfo struct {
	Version string `yaml:"version"`
	OS      string `yaml:"os"`
	Arch    string `yaml:"arch"`
	CPUs    int    `yaml:"cpus"`
}

type ConfigInfo struct {
	Path          string `yaml:"path"`
	Exists        bool   `yaml:"exists"`
	FileSizeBytes int64  `yaml:"fileSizeBytes,omitempty"`
	UpdatedAt     string `yaml:"updatedAt,omitempty"`
	Providers     int    `yaml:"catalogProviders,omitempty"`
	Selected      int    `yaml:"selectedProviders,omitempty"`
	ParseError    string `yaml:"parseError,omitempty"`
}

type BackendInfo struct {
	BaseURL   string `yaml:"baseURL"`
	Push      string `yaml:"push,omitempty"`
	Selection string `yaml:"selection,omitempty"`
	Reachable bool   `yaml:"reachable"`
	Error     string `yaml:"error,omitempty"`
}

// Collect returns a health snapshot for the current process.
func Collect(opts Options) Snapshot {
	opts = opts.normalize()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Snapshot{
		Status:     "healthy",
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			AllocMB: float64(mem.Alloc) / 1024 / 1024,
			SysMB:   float64(mem.Sys) / 1024 / 1024,
			NumGC:   mem.NumGC,
		},
		Runtime: RuntimeInfo{
			Version: runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			CPUs:    runtime.NumCPU(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if opts.ConfigPath != "" {
		s.Config = inspectConfigFile(opts.ConfigPath)
		if s.Config.ParseError != "" {
			s.Status = "degraded"
		}
	}
	if opts.BaseURL != "" {
		s.Backend = probeBackend(opts)
		if !s.Backend.Reachable {
			s.Status = "degraded"
		}
	}
	return s
}

func inspectConfigFile(path string) *ConfigInfo {
	info := &ConfigInfo{Path: path}

	stat, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			info.ParseError = err.Error()
		}
		return info
	}

	info.Exists = true
	info.FileSizeBytes = stat.Size()
	info.UpdatedAt = stat.ModTime().Format(time.RFC3339)

	data, err := os.ReadFile(path)
	if err != nil {
		info.ParseError = err.Error()
		return info
	}

	var payload struct {
		Catalog   []yaml.Node       `yaml:"catalog"`
		Selection map[string]string `yaml:"selection"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		info.ParseError = err.Error()
		return info
	}
	info.Providers = len(payload.Catalog)
	for _, model := range payload.Selection {
		if model != "" {
			info.Selected++
		}
	}
	return info
}

func probeBackend(opts Options) *BackendInfo {
	info := &BackendInfo{BaseURL: opts.BaseURL, Push: opts.Push, Selection: opts.Selection}

	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Host == "" {
		info.Error = "invalid base URL"
		return info
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", host, opts.DialTimeout)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	_ = conn.Close()
	info.Reachable = true
	return info
}
