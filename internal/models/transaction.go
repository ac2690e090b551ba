package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fixed shape of the transaction feed query.
const (
	TransactionSortField = "blockTime" // TransactionSortField orders the feed, newest first.
	TransactionFeedLimit = 50          // TransactionFeedLimit caps the number of returned documents.
)

// dateTimeLayout renders BSON dates with millisecond precision, the resolution BSON stores.
const dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is a transaction record exactly as stored in the collection.
// Field order and field set are preserved; only BSON-specific scalar types
// are rendered into plain JSON values when the document is encoded.
// swagger:model Document
type Document bson.D

// MarshalJSON encodes the document as a JSON object in stored field order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDocument(&buf, bson.D(d)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lookup returns the value stored under key, if any.
func (d Document) Lookup(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func writeDocument(buf *bytes.Buffer, d bson.D) error {
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, e.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, e.Value); err != nil {
			return fmt.Errorf("field %q: %w", e.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeArray(buf *bytes.Buffer, a []any) error {
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, v); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		buf.WriteString("null")
		return nil
	case primitive.D:
		return writeDocument(buf, val)
	case Document:
		return writeDocument(buf, bson.D(val))
	case primitive.M:
		return writeDocument(buf, sortedDocument(val))
	case primitive.A:
		return writeArray(buf, val)
	case []any:
		return writeArray(buf, val)
	case primitive.ObjectID:
		return writeJSON(buf, val.Hex())
	case primitive.DateTime:
		return writeJSON(buf, val.Time().UTC().Format(dateTimeLayout))
	case primitive.Decimal128:
		return writeJSON(buf, val.String())
	case primitive.Timestamp:
		return writeDocument(buf, bson.D{{Key: "t", Value: val.T}, {Key: "i", Value: val.I}})
	case primitive.Binary:
		return writeJSON(buf, val.Data)
	case primitive.Regex:
		return writeJSON(buf, "/"+val.Pattern+"/"+val.Options)
	default:
		return writeJSON(buf, val)
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// sortedDocument gives unordered maps a deterministic rendering.
func sortedDocument(m primitive.M) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
