package apegears

import (
	"fmt"
	"strings"
)

// KeyValue is one parsed KEY=VALUE token. Dict arguments fold a stream of
// these into an ordered map.
type KeyValue struct {
	Key   interface{}
	Value interface{}
}

// KeyValueConverter builds a converter for KEY=VALUE tokens. The token is
// split on the first occurrence of delim; key and value are then converted
// independently. A token without the delimiter is a value error.
func KeyValueConverter(key, value Converter, delim string) Converter {
	if key == nil {
		key = String
	}
	if value == nil {
		value = String
	}
	return func(s string) (interface{}, error) {
		k, v, found := strings.Cut(s, delim)
		if !found {
			return nil, fmt.Errorf("expected KEY%sVALUE, got %q", delim, s)
		}
		kc, err := key(k)
		if err != nil {
			return nil, fmt.Errorf("bad key in %q: %v", s, err)
		}
		vc, err := value(v)
		if err != nil {
			return nil, fmt.Errorf("bad value in %q: %v", s, err)
		}
		return KeyValue{Key: kc, Value: vc}, nil
	}
}
