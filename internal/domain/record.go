package domain

import (
	"encoding/json"
	"reflect"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Record is the flat persisted representation of an entity: one JSON object.
type Record map[string]interface{}

// RecordCodec encodes records. Numbers decode as json.Number so money never
// passes through float64.
var RecordCodec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

func init() {
	// amounts are written as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// ID returns the integer identifier of the record, 0 when absent
func (r Record) ID() int64 {
	return cast.ToInt64(r["id"])
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToRecord converts a typed entity into its flat representation
func ToRecord(v interface{}) (Record, error) {
	data, err := RecordCodec.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	var rec Record
	if err := RecordCodec.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	return rec, nil
}

// FromRecord decodes a flat record into the typed entity pointed to by out
func FromRecord(rec Record, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalHookFunc,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return errors.Wrap(err, "record decoder")
	}
	if err := dec.Decode(map[string]interface{}(rec)); err != nil {
		return errors.Wrapf(err, "decode record %d", rec.ID())
	}
	return nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHookFunc(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return data, nil
}
