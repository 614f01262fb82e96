package report

import "time"

// CacheEntry is the last recorded execution of a plugin against a core version.
type CacheEntry struct {
	PluginID    string
	CoreVersion string
	Timestamp   time.Time
	Status      Status
}

// Cache decides whether a previous result can stand in for a new execution.
// A result is reused when it is younger than Window and its status is no
// more severe than Threshold.
type Cache struct {
	Window    time.Duration
	Threshold Status

	report *Report
	now    func() time.Time
}

// NewCache creates a cache over r. A zero window disables reuse.
func NewCache(r *Report, window time.Duration, threshold Status) *Cache {
	if threshold == "" {
		threshold = StatusInternalError
	}
	return &Cache{
		Window:    window,
		Threshold: threshold,
		report:    r,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Entry returns the recorded execution for the plugin version and core version.
func (c *Cache) Entry(pluginID, pluginVersion, coreVersion string) (CacheEntry, bool) {
	if c.report == nil {
		return CacheEntry{}, false
	}
	res, ok := c.report.Lookup(pluginID, pluginVersion, coreVersion)
	if !ok {
		return CacheEntry{}, false
	}
	return CacheEntry{
		PluginID:    pluginID,
		CoreVersion: coreVersion,
		Timestamp:   res.Timestamp,
		Status:      res.Status,
	}, true
}

// Fresh returns the cached result when it may be reused.
func (c *Cache) Fresh(pluginID, pluginVersion, coreVersion string) (Result, bool) {
	if c.Window <= 0 {
		return Result{}, false
	}
	entry, ok := c.Entry(pluginID, pluginVersion, coreVersion)
	if !ok {
		return Result{}, false
	}
	if !c.now().Before(entry.Timestamp.Add(c.Window)) {
		return Result{}, false
	}
	if !entry.Status.AtLeast(c.Threshold) {
		return Result{}, false
	}

	res, _ := c.report.Lookup(pluginID, pluginVersion, coreVersion)
	res.Cached = true
	return res, true
}
