package itemstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Item is one record of a collection as returned by the store.
type Item map[string]any

// String returns the field rendered as a string, or "" when absent.
func (i Item) String(key string) string {
	switch v := i[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Decode copies the item into out using `mapstructure` tags. Numbers sent as
// strings are accepted, and RFC 3339 strings decode into time.Time.
func (i Item) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("itemstore: build decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(i)); err != nil {
		return fmt.Errorf("itemstore: decode item: %w", err)
	}
	return nil
}
