package core

import (
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// rawNetworkFields mirrors ports.RawNetwork. Values are decoded untyped so
// malformed ones survive translation.
type rawNetworkFields struct {
	Title       any            `mapstructure:"title"`
	Description any            `mapstructure:"description"`
	VLAN        any            `mapstructure:"vlan"`
	Range       map[string]any `mapstructure:"range"`
}

type rawRangeFields struct {
	Address    any `mapstructure:"address"`
	Allocation any `mapstructure:"allocation"`
	Gateway    any `mapstructure:"gateway"`
}

// decodeRaw decodes a raw record into fields. Keys match exactly. A field
// that fails to decode is left zero while the others are still filled, so
// the returned error is informational only.
func decodeRaw(input map[string]any, fields any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:    fields,
		TagName:   "mapstructure",
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// RawToNetwork translates a raw backend record into an OCCI network. The
// result always carries the IP network mixin. Keys absent from raw stay
// absent in the result and the id is stringified. String attributes holding
// a value of another type are passed through verbatim in Extra under their
// OCCI name, so the translation never fails and never rewrites a value.
func RawToNetwork(raw ports.RawNetwork) *domain.Network {
	var fields rawNetworkFields
	_ = decodeRaw(raw, &fields)

	attrs := domain.NetworkAttributes{
		ID:   raw.ID(),
		VLAN: fields.VLAN,
	}
	putPresent(&attrs, &attrs.Title, domain.AttrCoreTitle, fields.Title)
	putPresent(&attrs, &attrs.Summary, domain.AttrCoreSummary, fields.Description)

	if fields.Range != nil {
		var rng rawRangeFields
		_ = decodeRaw(fields.Range, &rng)
		putPresent(&attrs, &attrs.Address, domain.AttrNetworkAddress, rng.Address)
		putPresent(&attrs, &attrs.Allocation, domain.AttrNetworkAllocation, rng.Allocation)
		putPresent(&attrs, &attrs.Gateway, domain.AttrNetworkGateway, rng.Gateway)
	}

	return domain.NewNetwork(attrs)
}

// putPresent stores a string value in target and any other non-nil value in
// attrs.Extra under name.
func putPresent(attrs *domain.NetworkAttributes, target **string, name string, value any) {
	switch v := value.(type) {
	case nil:
	case string:
		*target = &v
	default:
		if attrs.Extra == nil {
			attrs.Extra = make(map[string]any)
		}
		attrs.Extra[name] = v
	}
}

// NetworkToRaw translates OCCI network attributes into a raw backend record.
// Unlike RawToNetwork it is driven by truthiness: attributes that are absent,
// empty, false or zero are omitted. The "range" key is present only when at
// least one of address, allocation and gateway is.
func NetworkToRaw(attrs domain.NetworkAttributes) ports.RawNetwork {
	raw := ports.RawNetwork{}
	if attrs.ID != "" {
		raw[ports.RawKeyID] = attrs.ID
	}
	putTruthy(raw, ports.RawKeyTitle, attrs.Title)
	putTruthy(raw, ports.RawKeyDescription, attrs.Summary)
	if truthy(attrs.VLAN) {
		raw[ports.RawKeyVLAN] = attrs.VLAN
	}

	rng := ports.RawRange{}
	putTruthy(rng, ports.RawKeyAddress, attrs.Address)
	putTruthy(rng, ports.RawKeyAllocation, attrs.Allocation)
	putTruthy(rng, ports.RawKeyGateway, attrs.Gateway)
	if len(rng) > 0 {
		raw[ports.RawKeyRange] = rng
	}

	return raw
}

func putTruthy[M ~map[string]any](m M, key string, v *string) {
	if v != nil && *v != "" {
		m[key] = *v
	}
}

// truthy reports whether v is set to something other than nil, false, an
// empty string or a numeric zero.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	default:
		return true
	}
}
