package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"edgeinsight-backend/internal/model"
)

// decodeJSON accepts an array of objects or an object whose "data" field is
// such an array. Columns are the union of object keys in first-seen order.
func decodeJSON(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedJSON
	}

	doc := gjson.ParseBytes(data)
	items := doc
	if !doc.IsArray() {
		items = doc.Get("data")
		if !doc.IsObject() || !items.IsArray() {
			return nil, ErrMalformedJSON
		}
	}

	tbl := &table{}
	known := make(map[string]struct{})
	malformed := false
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			malformed = true
			return false
		}
		row := make(model.Row)
		item.ForEach(func(key, value gjson.Result) bool {
			col := key.String()
			if _, ok := known[col]; !ok {
				known[col] = struct{}{}
				tbl.columns = append(tbl.columns, col)
			}
			if v := jsonCell(value); !v.IsNull() {
				row[col] = v
			}
			return true
		})
		tbl.rows = append(tbl.rows, row)
		return true
	})
	if malformed {
		return nil, ErrMalformedJSON
	}
	return tbl, nil
}

func jsonCell(v gjson.Result) model.Value {
	switch v.Type {
	case gjson.Null:
		return model.NullValue()
	case gjson.Number:
		return model.NumberValue(v.Num)
	case gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return model.NullValue()
		}
		return model.StringValue(v.Str)
	case gjson.True, gjson.False:
		return model.StringValue(v.String())
	default:
		return model.StringValue(v.Raw)
	}
}

func looksLikeJSON(text string) bool {
	if text == "" || (text[0] != '[' && text[0] != '{') {
		return false
	}
	return gjson.Valid(text)
}
