package kvcache

// Hooks are callbacks for cache events. Implementations must be cheap and
// non-blocking: the cache calls them inline on every read. Wrap slow sinks
// with hooks/async.
type Hooks interface {
	// Hit and Miss report a lookup of one key under path.
	Hit(path string)
	Miss(path string)

	// An entry was deleted on read.
	// reason is one of "corrupt", "gen_mismatch", "value_decode".
	SelfHeal(storageKey, reason string)

	// The provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A write was skipped because the path generation moved after the
	// snapshot the loaded values were stamped with.
	StaleWrite(path string)

	// GenStore errors. count is the number of paths involved.
	GenSnapshotError(count int, err error)
	GenBumpError(path string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string)                  {}
func (NopHooks) Miss(string)                 {}
func (NopHooks) SelfHeal(string, string)     {}
func (NopHooks) ProviderSetRejected(string)  {}
func (NopHooks) StaleWrite(string)           {}
func (NopHooks) GenSnapshotError(int, error) {}
func (NopHooks) GenBumpError(string, error)  {}
