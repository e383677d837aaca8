package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic
// when unmarshaled into a Transaction struct.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"item_id":"SKU-1","change":10}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"item_id":"","change":-9223372036854775808}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var tr Transaction
		if err := json.Unmarshal(data, &tr); err != nil {
			return
		}
		// If unmarshal succeeded, these must not panic.
		tr.Validate()
		tr.Hash()
		_ = tr.String()
	})
}
