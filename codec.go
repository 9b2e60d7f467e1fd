package duocache

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Codec converts values of type V to and from the bytes the Disk Tier
// stores, per spec.md §9's "codec neutrality" note: the only requirement is
// totality of bytes<->value for V. A byte-typed cache never calls its codec
// at all; see [isByteValue].
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}

// jsonCodec is the default structured codec: encoding/json-compatible but
// backed by goccy/go-json, the faster drop-in the example pack favors over
// the standard library's encoder.
type jsonCodec[V any] struct{}

// JSONCodec returns the default value codec, used when [Options.Codec] is
// left nil and V is not []byte.
func JSONCodec[V any]() Codec[V] {
	return jsonCodec[V]{}
}

func (jsonCodec[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding value: %w", ErrCodec, err)
	}

	return b, nil
}

func (jsonCodec[V]) Decode(b []byte) (V, error) {
	var v V

	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("%w: decoding value: %w", ErrCodec, err)
	}

	return v, nil
}

// byteCodec is used internally when V is []byte: Encode/Decode are never
// reached in that case (the Cache passes bytes straight through), but the
// type still has to satisfy Codec[V] so generic wiring type-checks.
type byteCodec[V any] struct{}

func (byteCodec[V]) Encode(v V) ([]byte, error) {
	b, _ := any(v).([]byte)
	return b, nil
}

func (byteCodec[V]) Decode(b []byte) (V, error) {
	v, _ := any(b).(V)
	return v, nil
}

func isByteValue[V any]() bool {
	var zero V
	_, ok := any(zero).([]byte)

	return ok
}
