package filestore

import (
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/mixelka/mailsync/pkg/models"
)

// Older files carry ids as strings, booleans as 0/1 and setting values
// as numbers. The flex types accept all of those on read and write the
// canonical form back.

type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexBool(models.ToBool(v))
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

// flexMillis reads epoch milliseconds or a timestamp string
type flexMillis int64

func (f *flexMillis) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = 0
	if t := models.ParseDate(v); t != nil {
		*f = flexMillis(t.UnixMilli())
	}
	return nil
}
