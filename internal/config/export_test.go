package config

// Reload re-reads the config file and applies the change handling that
// Watch runs on a file event, so tests can exercise it synchronously.
func (m *Monitor) Reload() error {
	if err := m.v.ReadInConfig(); err != nil {
		return err
	}
	m.reload()
	return nil
}
