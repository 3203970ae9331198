package ast

import "fmt"

// Every variant discriminator in this package is a small int enum that travels as
// its name in JSON, so a serialized tree reads {"kind":"Select",...}.

func kindName[K ~int](k K, names []string) string {
	if int(k) <= 0 || int(k) >= len(names) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return names[k]
}

func marshalKind[K ~int](k K, names []string) ([]byte, error) {
	if int(k) <= 0 || int(k) >= len(names) {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(names[k]), nil
}

func unmarshalKind[K ~int](text []byte, names []string, k *K) error {
	for i := 1; i < len(names); i++ {
		if names[i] == string(text) {
			*k = K(i)
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", text)
}
