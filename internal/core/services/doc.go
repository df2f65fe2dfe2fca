// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService is the only component that mutates the persisted index.
// RetrieverService and WatchService consume it; SettingsService maps the
// config store onto domain.AppSettings.
package services
