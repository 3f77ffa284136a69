package repository

import "context"

// SettingsStore owns settings.json.
type SettingsStore struct {
	store *documentStore[AppSettings]
}

// NewSettingsStore returns a store persisting through docs.
func NewSettingsStore(docs DocumentStore, opts ...StoreOption) *SettingsStore {
	return &SettingsStore{
		store: newDocumentStore(docs, SettingsDocument, "settings", DefaultSettings, reconcileSettings, validateSettings, opts),
	}
}

// Get returns the current settings, merged over defaults.
func (s *SettingsStore) Get(ctx context.Context) AppSettings {
	return s.store.Get(ctx)
}

// Save persists settings. Unset fields are filled from defaults first.
func (s *SettingsStore) Save(ctx context.Context, settings AppSettings) error {
	return s.store.Save(ctx, settings)
}

// Locale is the configured UI locale.
func (s *SettingsStore) Locale(ctx context.Context) string {
	return s.Get(ctx).Locale
}

// ClearCache forgets the local snapshot.
func (s *SettingsStore) ClearCache() {
	s.store.ClearCache()
}
