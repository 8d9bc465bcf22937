package tracegc

// Close stops the collector from accepting registrations and cycles.
//
// Handles stay resolvable and pins can still be released. Objects that are
// still registered are not finalized.
func (c *Collector) Close() error {
	if c == nil {
		return nil
	}
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (c *Collector) Closed() bool {
	return c != nil && c.closed.Load()
}
