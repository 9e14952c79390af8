package core

// Engine is the timing engine as the controller sees it. Apply is the only
// way to change the engine's configuration; implementations perform the
// complete stop/clear/reload/restart sequence inside it so callers cannot
// reorder or skip steps.
type Engine interface {
	// Apply reprograms the engine so subsequent triggers use cfg.
	// Triggers arriving while Apply runs are ignored, not queued.
	Apply(cfg EngineConfig)
}

// BackgroundTask is started once at boot and then runs on its own, with no
// further calls from the controller. The DMA offset refill is one.
type BackgroundTask interface {
	Start()
}
