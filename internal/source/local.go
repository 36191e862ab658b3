package source

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
)

// LocalSource reads host telemetry from the proc filesystem and serves the
// workload/resource inventory from the jobs file. This is the self-hosted
// mode: the hub monitors the machine it runs on plus a declared inventory.
type LocalSource struct {
	inventory config.Inventory
	procRoot  string
	diskPath  string

	mu      sync.Mutex
	prevCPU *cpuCounters
}

type cpuCounters struct {
	total uint64
	idle  uint64
}

// NewLocalSource builds a source rooted at the real proc filesystem
func NewLocalSource(inventory config.Inventory) *LocalSource {
	return &LocalSource{
		inventory: inventory,
		procRoot:  "/proc",
		diskPath:  "/",
	}
}

// Sample captures current host telemetry. The CPU figure is a delta against
// the previous call, so the very first sample reports zero CPU.
func (s *LocalSource) Sample(ctx context.Context) (*database.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	total, idle, err := s.readCPU()
	if err != nil {
		return nil, unavailable(err)
	}

	sample := &database.MetricSample{TakenAt: time.Now().UTC()}

	s.mu.Lock()
	if s.prevCPU != nil {
		deltaTotal := total - s.prevCPU.total
		deltaIdle := idle - s.prevCPU.idle
		if deltaTotal > 0 {
			sample.CPUPercent = 100 * (1 - float64(deltaIdle)/float64(deltaTotal))
		}
	}
	s.prevCPU = &cpuCounters{total: total, idle: idle}
	s.mu.Unlock()

	memTotal, memAvailable, err := s.readMem()
	if err != nil {
		return nil, unavailable(err)
	}
	if memTotal > 0 {
		sample.MemoryPercent = 100 * float64(memTotal-memAvailable) / float64(memTotal)
	}

	diskTotal, diskUsed, err := readDiskUsage(s.diskPath)
	if err != nil {
		return nil, unavailable(err)
	}
	if diskTotal > 0 {
		sample.DiskPercent = 100 * float64(diskUsed) / float64(diskTotal)
	}

	load1, load5, load15, procs, err := s.readLoadAvg()
	if err != nil {
		return nil, unavailable(err)
	}
	sample.Load1, sample.Load5, sample.Load15 = load1, load5, load15
	sample.ProcessCount = procs

	rx, tx, err := s.readNetDev()
	if err != nil {
		return nil, unavailable(err)
	}
	sample.NetBytesRecv = rx
	sample.NetBytesSent = tx

	return sample, nil
}

// Deployments serves the declared workload inventory
func (s *LocalSource) Deployments(ctx context.Context) ([]Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	deployments := make([]Deployment, 0, len(s.inventory.Deployments))
	for _, entry := range s.inventory.Deployments {
		deployments = append(deployments, Deployment{
			Name:      entry.Name,
			Namespace: entry.Namespace,
			Desired:   entry.Desired,
			Ready:     entry.Ready,
			Available: entry.Available,
		})
	}
	return deployments, nil
}

// Resources serves the declared billable inventory
func (s *LocalSource) Resources(ctx context.Context) ([]ResourceUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	resources := make([]ResourceUsage, 0, len(s.inventory.Resources))
	for _, entry := range s.inventory.Resources {
		resources = append(resources, ResourceUsage{
			ID:            entry.ID,
			Type:          entry.Type,
			HourlyCost:    entry.HourlyCost,
			UsagePattern:  entry.UsagePattern,
			CPUPercent:    entry.CPUPercent,
			MemoryPercent: entry.MemoryPercent,
		})
	}
	return resources, nil
}

func (s *LocalSource) readCPU() (total, idle uint64, err error) {
	f, err := os.Open(filepath.Join(s.procRoot, "stat"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return 0, 0, errors.New("malformed cpu line in stat")
		}
		values := make([]uint64, 0, len(fields)-1)
		for _, field := range fields[1:] {
			v, parseErr := strconv.ParseUint(field, 10, 64)
			if parseErr != nil {
				return 0, 0, parseErr
			}
			values = append(values, v)
			total += v
		}
		// idle + iowait both count as idle time
		idle = values[3]
		if len(values) > 4 {
			idle += values[4]
		}
		return total, idle, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, errors.New("cpu line not found in stat")
}

func (s *LocalSource) readMem() (total, available uint64, err error) {
	f, err := os.Open(filepath.Join(s.procRoot, "meminfo"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseUint(fields[1], 10, 64)
			total *= 1024
		case "MemAvailable:":
			available, _ = strconv.ParseUint(fields[1], 10, 64)
			available *= 1024
		}
	}
	if total == 0 {
		return 0, 0, errors.New("meminfo parse failed")
	}
	return total, available, nil
}

// readLoadAvg parses load averages and the total process count from the
// runnable/total field.
func (s *LocalSource) readLoadAvg() (load1, load5, load15 float64, procs int, err error) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, "loadavg"))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 4 {
		return 0, 0, 0, 0, errors.New("malformed loadavg")
	}
	load1, _ = strconv.ParseFloat(fields[0], 64)
	load5, _ = strconv.ParseFloat(fields[1], 64)
	load15, _ = strconv.ParseFloat(fields[2], 64)
	if parts := strings.SplitN(fields[3], "/", 2); len(parts) == 2 {
		procs, _ = strconv.Atoi(parts[1])
	}
	return load1, load5, load15, procs, nil
}

func (s *LocalSource) readNetDev() (rx, tx uint64, err error) {
	f, err := os.Open(filepath.Join(s.procRoot, "net/dev"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if strings.TrimSpace(parts[0]) == "lo" {
			continue
		}
		values := strings.Fields(parts[1])
		if len(values) < 16 {
			continue
		}
		r, _ := strconv.ParseUint(values[0], 10, 64)
		t, _ := strconv.ParseUint(values[8], 10, 64)
		rx += r
		tx += t
	}
	return rx, tx, scanner.Err()
}

func readDiskUsage(path string) (total, used uint64, err error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	total = st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	used = total - free
	return total, used, nil
}
