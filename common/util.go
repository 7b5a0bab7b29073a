package common

import (
	"encoding"
	"net/netip"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// WeakDecodeMap decodes a free-form config map into output. String values are
// passed through UnmarshalText when the target type implements it, and keys
// that match no field are rejected.
func WeakDecodeMap(input, output any) error {
	config := &mapstructure.DecoderConfig{
		Metadata:    nil,
		Result:      output,
		ErrorUnused: true,
		DecodeHook: func(
			f reflect.Type,
			t reflect.Type,
			data interface{}) (interface{}, error) {
			if !reflect.PointerTo(t).Implements(textUnmarshalerType) {
				return data, nil
			}

			str, ok := data.(string)
			if !ok {
				return data, nil
			}

			v := reflect.New(t).Interface().(encoding.TextUnmarshaler)
			if err := v.UnmarshalText([]byte(str)); err != nil {
				return nil, err
			}

			return v, nil
		},
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func DetectNormalizeAddr(addr string) (norm string, isIP bool) {
	if _, err := netip.ParseAddr(addr); err == nil {
		return addr, true
	}

	if len(addr) > 2 && addr[0] == '[' && addr[len(addr)-1] == ']' {
		addrStrip := addr[1 : len(addr)-1]
		if ip, err := netip.ParseAddr(addrStrip); err == nil {
			if ip.Is6() {
				return addrStrip, true
			}
		}
	}

	return addr, false
}
