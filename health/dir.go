package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirChecker verifies that a cache directory is usable: it exists, is a
// directory, and accepts writes. The entry count is reported as a detail.
type DirChecker struct {
	name string
	dir  string
}

// NewDirChecker creates a checker for the given cache directory.
func NewDirChecker(name, dir string) *DirChecker {
	return &DirChecker{name: name, dir: dir}
}

// Name identifies the checked component.
func (c *DirChecker) Name() string { return c.name }

// Check probes the directory. A missing or unwritable directory is
// unhealthy; a readable but unwritable one is degraded.
func (c *DirChecker) Check(ctx context.Context) Result {
	start := time.Now()

	res := c.probe(ctx)
	res.Duration = time.Since(start)
	return res
}

func (c *DirChecker) probe(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("check cancelled", err)
	}

	info, err := os.Stat(c.dir)
	if err != nil {
		return Unhealthy(fmt.Sprintf("cache directory %s is not accessible", c.dir), err)
	}
	if !info.IsDir() {
		return Unhealthy(fmt.Sprintf("%s is not a directory", c.dir), nil)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Unhealthy(fmt.Sprintf("cache directory %s is not readable", c.dir), err)
	}

	// Write probe: the cache is useless read-only, but existing entries can
	// still be restored, so that is degraded rather than unhealthy.
	probe := filepath.Join(c.dir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		res := Degraded(fmt.Sprintf("cache directory %s is not writable", c.dir))
		res.Error = err
		res.Details = map[string]any{"entries": len(entries)}
		return res
	}
	_ = os.Remove(probe)

	res := Healthy(fmt.Sprintf("cache directory %s ok", c.dir))
	res.Details = map[string]any{"entries": len(entries)}
	return res
}

// Ensure DirChecker implements Checker
var _ Checker = (*DirChecker)(nil)
