package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Reading is one raw key/value pair from a document's readings map.
type Reading struct {
	Key   string
	Value float64
}

// PendingDocument is a batch of readings uploaded by one station at one instant.
// Invalid is set when the document could not be decoded; only ID is filled then.
type PendingDocument struct {
	ID         any
	StationID  string
	CapturedAt int64
	Readings   []Reading
	Invalid    error
}

type rawDocument struct {
	ID       any           `bson:"_id"`
	UID      string        `bson:"uid"`
	UXT      bson.RawValue `bson:"uxt"`
	Readings bson.Raw      `bson:"readings"`
}

// DecodeDocument converts a staged bson document into a PendingDocument.
// Readings keep the order in which they appear in the document; non-numeric
// values are dropped.
func DecodeDocument(raw bson.Raw) (PendingDocument, error) {
	var rd rawDocument
	if err := bson.Unmarshal(raw, &rd); err != nil {
		return PendingDocument{}, fmt.Errorf("failed to decode staging document: %w", err)
	}
	if rd.UID == "" {
		return PendingDocument{}, errors.New("staging document has no uid")
	}

	capturedAt, err := toEpoch(rd.UXT)
	if err != nil {
		return PendingDocument{}, err
	}

	doc := PendingDocument{
		ID:         rd.ID,
		StationID:  rd.UID,
		CapturedAt: capturedAt,
	}

	if len(rd.Readings) == 0 {
		return doc, nil
	}
	elements, err := rd.Readings.Elements()
	if err != nil {
		return PendingDocument{}, fmt.Errorf("failed to read readings: %w", err)
	}
	for _, el := range elements {
		value, ok := toFloat(el.Value())
		if !ok {
			slog.Warn("Dropping non-numeric reading",
				"station_id", rd.UID,
				"reading_key", el.Key(),
				"bson_type", el.Value().Type.String(),
			)
			continue
		}
		doc.Readings = append(doc.Readings, Reading{Key: el.Key(), Value: value})
	}

	return doc, nil
}

// decodePending decodes a listed document. A document that fails to decode but
// carries an _id is returned with Invalid set so it can be removed; one without
// an _id cannot be addressed and is reported as not ok.
func decodePending(raw bson.Raw) (PendingDocument, bool) {
	doc, err := DecodeDocument(raw)
	if err == nil {
		return doc, true
	}

	var key struct {
		ID any `bson:"_id"`
	}
	if uerr := bson.Unmarshal(raw, &key); uerr != nil || key.ID == nil {
		slog.Warn("Skipping undecodable staging document without _id", "error", err)
		return PendingDocument{}, false
	}
	return PendingDocument{ID: key.ID, Invalid: err}, true
}

func toEpoch(v bson.RawValue) (int64, error) {
	switch v.Type {
	case bsontype.Int64:
		return v.Int64(), nil
	case bsontype.Int32:
		return int64(v.Int32()), nil
	case bsontype.Double:
		return int64(v.Double()), nil
	case bsontype.String:
		n, err := strconv.ParseInt(v.StringValue(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid uxt %q: %w", v.StringValue(), err)
		}
		return n, nil
	case bsontype.DateTime:
		return v.DateTime(), nil
	case 0:
		return 0, errors.New("staging document has no uxt")
	default:
		return 0, fmt.Errorf("unsupported uxt type %s", v.Type)
	}
}

func toFloat(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Double:
		return v.Double(), true
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Decimal128:
		f, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// EncodeDocument builds a staging document for stationID. Readings are written in
// slice order, which is the order DecodeDocument returns them in.
func EncodeDocument(stationID string, capturedAt int64, readings []Reading) bson.D {
	values := make(bson.D, 0, len(readings))
	for _, r := range readings {
		values = append(values, bson.E{Key: r.Key, Value: r.Value})
	}
	return bson.D{
		{Key: "uid", Value: stationID},
		{Key: "uxt", Value: capturedAt},
		{Key: "readings", Value: values},
	}
}
