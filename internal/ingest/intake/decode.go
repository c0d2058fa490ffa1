// Package intake decodes operator uploads into records ready for staging.
//
// CSV uploads use the header row as field names; JSON uploads are an array of flat
// objects. Field order is kept as received, values stay strings, and each record
// keeps a copy of its source row or object as the raw blob. A "record_kind" field
// overrides the default kind so one upload can feed a full sync batch.
package intake

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"stagehand/internal/ingest/models"
	pstrings "stagehand/pkg/platform/strings"
)

// KindField names the optional per-record kind column.
const KindField = "record_kind"

// ErrMalformed is wrapped by every decoding failure caused by the input itself.
var ErrMalformed = errors.New("malformed upload")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// DecodeCSV reads a header row and one record per following row. Rows must have
// exactly as many columns as the header. At most limit records are accepted when
// limit is positive.
func DecodeCSV(r io.Reader, kind models.RecordKind, limit int) ([]models.NewRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, malformed("missing header row")
	}
	if err != nil {
		return nil, malformed("read header: %v", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
		if headers[i] == "" {
			return nil, malformed("column %d has an empty header", i+1)
		}
	}
	if dup, ok := pstrings.FirstDuplicate(headers); ok {
		return nil, malformed("duplicate header %q", dup)
	}
	reader.FieldsPerRecord = len(headers)

	var recs []models.NewRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("%v", err)
		}
		if limit > 0 && len(recs) == limit {
			return nil, malformed("more than %d records", limit)
		}
		line, _ := reader.FieldPos(0)

		fields := make(models.Fields, 0, len(headers))
		for i, name := range headers {
			fields = append(fields, models.Field{Name: name, Value: row[i]})
		}
		rec, err := newRecord(kind, fields, csvLine(row))
		if err != nil {
			return nil, malformed("line %d: %v", line, err)
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, malformed("no records")
	}
	return recs, nil
}

func csvLine(row []string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(row)
	w.Flush()
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// DecodeJSON reads an array of flat objects. Numbers keep their literal text,
// booleans become "true"/"false" and null becomes an empty value. Nested objects
// and arrays are rejected.
func DecodeJSON(r io.Reader, kind models.RecordKind, limit int) ([]models.NewRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("read body: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, malformed("body must be a JSON array of objects")
	}

	var recs []models.NewRecord
	for i := 0; dec.More(); i++ {
		if limit > 0 && len(recs) == limit {
			return nil, malformed("more than %d records", limit)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed("record %d: %v", i, err)
		}
		fields, err := objectFields(raw)
		if err != nil {
			return nil, malformed("record %d: %v", i, err)
		}
		rec, err := newRecord(kind, fields, compact(raw))
		if err != nil {
			return nil, malformed("record %d: %v", i, err)
		}
		recs = append(recs, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("unterminated array: %v", err)
	}
	if len(recs) == 0 {
		return nil, malformed("no records")
	}
	return recs, nil
}

// objectFields walks one object's tokens so keys keep their source order.
func objectFields(raw json.RawMessage) (models.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("must be an object")
	}

	var fields models.Fields
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := keyTok.(string)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate field %q", key)
		}
		seen[key] = struct{}{}

		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		var value string
		switch v := valTok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprint(v)
		case nil:
			value = ""
		default:
			return nil, fmt.Errorf("field %q must be a scalar", key)
		}
		fields = append(fields, models.Field{Name: key, Value: value})
	}
	return fields, nil
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// newRecord lifts an optional kind field out of fields.
func newRecord(kind models.RecordKind, fields models.Fields, blob []byte) (models.NewRecord, error) {
	rec := models.NewRecord{Kind: kind, RawBlob: blob}
	for _, f := range fields {
		if f.Name != KindField {
			rec.RawFields = append(rec.RawFields, f)
			continue
		}
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		k, err := models.ParseRecordKind(f.Value)
		if err != nil {
			return rec, err
		}
		rec.Kind = k
	}
	if rec.Kind == "" {
		return rec, fmt.Errorf("%s is required", KindField)
	}
	return rec, nil
}
