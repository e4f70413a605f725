package embedstore

// resetDefault clears the process-wide store between tests.
func resetDefault() {
	initMu.Lock()
	defer initMu.Unlock()
	if defaultStore != nil {
		defaultStore.Close()
	}
	defaultStore = nil
}
