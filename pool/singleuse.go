package pool

// singleUsePool makes the item take obtained objects back on release.
// Requires StorageSettings.ExclusiveUse.
type singleUsePool[K comparable, V comparable] struct {
	inner chain[K, V]
}

func (p *singleUsePool[K, V]) TryObtain(key K, create CreateFunc[K, V]) (V, bool, error) {
	return p.inner.TryObtain(key, create)
}

func (p *singleUsePool[K, V]) Release(key K, obj V) error {
	it, ok := p.inner.lookup(key)
	if !ok {
		return invalidOp(key, obj, "no objects were ever obtained with this key")
	}
	if err := it.release(obj); err != nil {
		return err
	}
	return p.inner.Release(key, obj)
}

func (p *singleUsePool[K, V]) Dispose() { p.inner.Dispose() }

func (p *singleUsePool[K, V]) lookup(key K) (*item[K, V], bool) { return p.inner.lookup(key) }
