package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// NormalizerChanged is true if any normalizer setting changed. The
	// caller rebuilds its normalizer from the new config.
	NormalizerChanged bool

	// RestartRequired lists sections that changed but only take effect
	// after a restart (listen address, providers, resilience, telemetry).
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Normalizer != new.Normalizer {
		d.NormalizerChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr || old.Server.MaxBodyBytes != new.Server.MaxBodyBytes ||
		old.Server.AnswerLog != new.Server.AnswerLog {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !slices.EqualFunc(old.Providers.ASR, new.Providers.ASR, entryEqual) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Resilience != new.Resilience {
		d.RestartRequired = append(d.RestartRequired, "resilience")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

// entryEqual compares the scalar fields of two provider entries. Options
// are compared by key set and formatted value.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, av := range a.Options {
		bv, ok := b.Options[k]
		if !ok || optionString(av) != optionString(bv) {
			return false
		}
	}
	return true
}
