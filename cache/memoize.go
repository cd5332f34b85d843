package cache

import (
	"context"
	"fmt"
	"reflect"
)

// Func is a read operation keyed by a single argument.
type Func[A, R any] func(ctx context.Context, arg A) (R, error)

// Memoize wraps fn with read-through caching. The cache key is
// prefix + ":" + keyFn(arg); a nil keyFn uses fmt.Sprint(arg) and an empty
// derived key uses prefix alone. Results are stored with kind's default TTL
// only when fn succeeds and the result is non-empty.
//
// Concurrent misses on the same key are not collapsed; each caller runs fn.
func Memoize[A, R any](m *Manager, kind Kind, prefix string, keyFn func(A) string, fn Func[A, R]) Func[A, R] {
	if keyFn == nil {
		keyFn = func(arg A) string { return fmt.Sprint(arg) }
	}
	return func(ctx context.Context, arg A) (R, error) {
		key := prefix
		if k := keyFn(arg); k != "" {
			key = prefix + ":" + k
		}
		if cached, ok := Get[R](ctx, m, key); ok && !isEmpty(cached) {
			return cached, nil
		}
		result, err := fn(ctx, arg)
		if err != nil {
			return result, err
		}
		if !isEmpty(result) {
			m.SetKind(ctx, kind, key, result)
		}
		return result, nil
	}
}

func isEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
