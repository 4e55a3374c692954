package transport

import (
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/google/go-querystring/query"
)

// QueryValues turns a caller-supplied query into url.Values. Accepts nil,
// url.Values as-is, map[string]string, or any struct tagged with `url` tags.
func QueryValues(q any) (url.Values, error) {
	switch v := q.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return v, nil
	case map[string]string:
		out := make(url.Values, len(v))
		for k, val := range v {
			out.Set(k, val)
		}
		return out, nil
	default:
		vals, err := query.Values(q)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		return vals, nil
	}
}

// JSONBody serializes a request body as JSON.
func JSONBody(body any) ([]byte, error) {
	return sonic.Marshal(body)
}

// FormBody serializes a request body as a urlencoded form, accepting the same
// shapes as QueryValues.
func FormBody(body any) ([]byte, error) {
	vals, err := QueryValues(body)
	if err != nil {
		return nil, err
	}
	if vals == nil {
		return nil, nil
	}
	return []byte(vals.Encode()), nil
}
