package tablemgr

type config struct {
	cacheRows     int64
	deleteWorkers int
}

// Option is an option for the table manager.
type Option func(*config)

// WithCacheRows sets the capacity of the decoded table cache, measured in
// rows. Tables larger than the capacity are never cached.
func WithCacheRows(n int64) Option {
	return func(c *config) {
		c.cacheRows = n
	}
}

// WithDeleteWorkers sets the number of concurrent object deletions issued when
// a table is dropped.
func WithDeleteWorkers(n int) Option {
	return func(c *config) {
		c.deleteWorkers = n
	}
}
