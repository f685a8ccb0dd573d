package orm

import (
	"github.com/go-viper/mapstructure/v2"

	"github.com/baseorm/baseorm/internal/core/errs"
	"github.com/baseorm/baseorm/internal/core/query/builder"
	"github.com/baseorm/baseorm/internal/core/schema"
)

// Decode copies a record into a struct whose fields are tagged `db`.
//
//	type Author struct {
//		ID   int64  `db:"id"`
//		Name string `db:"name"`
//	}
func Decode[T any](rec builder.Record) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(schema.TimestampLayout),
		),
	})
	if err != nil {
		return out, errs.Wrap(errs.ErrQuery, "decode", err)
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return out, errs.Wrap(errs.ErrQuery, "decode", err)
	}
	return out, nil
}

// DecodeAll decodes every record.
func DecodeAll[T any](recs []builder.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := Decode[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
