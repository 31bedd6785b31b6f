package aotgen

// Lazy 显式的"计算一次并缓存"包装
type Lazy[T any] struct {
	compute func() T
	done    bool
	value   T
}

// NewLazy 创建惰性值
func NewLazy[T any](compute func() T) *Lazy[T] {
	return &Lazy[T]{compute: compute}
}

// Get 返回值，首次调用时计算
func (l *Lazy[T]) Get() T {
	if !l.done {
		l.value = l.compute()
		l.compute = nil
		l.done = true
	}
	return l.value
}
