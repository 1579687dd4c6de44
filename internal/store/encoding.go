package store

import "encoding/json"

func unmarshalInto(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}
