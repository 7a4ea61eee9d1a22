/*
 * Copyright 2022 RapidLoop, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var typeMap = pgtype.NewMap()

// Row is a JSON object that preserves column order on marshal, with
// duplicate column names resolved by the last occurrence winning (matching
// plain JSON object key-uniqueness semantics) while keeping that column's
// original position.
type Row struct {
	keys []string
	vals map[string]any
}

// NewRow returns an empty Row ready for Set calls.
func NewRow() *Row {
	return &Row{vals: make(map[string]any)}
}

// Set stores value under key, appending key to the ordering the first time
// it is seen and overwriting the value (in place) on subsequent calls.
func (r *Row) Set(key string, value any) {
	if _, exists := r.vals[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Keys returns the column names in first-seen order.
func (r *Row) Keys() []string {
	return r.keys
}

// OrderedValues returns the column values in the same order as Keys.
func (r *Row) OrderedValues() []any {
	vals := make([]any, len(r.keys))
	for i, k := range r.keys {
		vals[i] = r.vals[k]
	}
	return vals
}

// MarshalJSON implements json.Marshaler, writing keys in first-seen order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeRow builds a Row from one fetched pgx.Rows position, using
// rows.FieldDescriptions() for column names/OIDs and rows.Values() for the
// already-decoded Go values, then applying DecodeCell to each.
func DecodeRow(rows pgx.Rows) (*Row, error) {
	fds := rows.FieldDescriptions()
	vals, err := rows.Values()
	if err != nil {
		return nil, err
	}
	row := NewRow()
	for i, fd := range fds {
		var v any
		if i < len(vals) {
			v = vals[i]
		}
		row.Set(string(fd.Name), DecodeCell(fd.DataTypeOID, v))
	}
	return row, nil
}

// DecodeCell converts one already-decoded pgx column value (as produced by
// pgx.Rows.Values()) into its JSON representation, following the priority
// order: null, native JSON/JSONB, integers, floats, bool, date, timestamp
// (without and with time zone), UUID, text, bytes, and finally an
// "unsupported" fallback object naming the driver type.
func DecodeCell(oid uint32, v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		return val
	case int64:
		return val
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case bool:
		return val
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return val.Format("2006-01-02")
		case pgtype.TimestampOID:
			return val.Format("2006-01-02T15:04:05")
		case pgtype.TimestamptzOID:
			return val.UTC().Format(time.RFC3339)
		default:
			return val.UTC().Format(time.RFC3339)
		}
	case [16]byte:
		return uuid.UUID(val).String()
	case string:
		return val
	case []byte:
		return map[string]any{
			"type":   "bytes",
			"base64": base64.StdEncoding.EncodeToString(val),
		}
	default:
		return map[string]any{"unsupported": oidName(oid)}
	}
}

func oidName(oid uint32) string {
	if t, ok := typeMap.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}
