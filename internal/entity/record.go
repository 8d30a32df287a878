package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/yuchiaw/oil-intake/constants"
)

// LabelRecord is the unit of work: five content fields transcribed from
// a bottle label plus the timestamp generated at confirmation.
//
// Name is copied verbatim from the label (Traditional Chinese on real
// stock); it is never auto-corrected to a similar catalog entry without
// an explicit user edit. Price and Volume are bare numeric strings (TWD
// and milliliters implied). Expiry is normalized to YYYY-MM. BatchCode
// is alphanumeric and may contain hyphens.
type LabelRecord struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Expiry    string `json:"expiry"`
	BatchCode string `json:"batch_code"`
}

// Field returns the value of the named content field.
func (r LabelRecord) Field(name string) (string, bool) {
	switch name {
	case constants.FieldName:
		return r.Name, true
	case constants.FieldPrice:
		return r.Price, true
	case constants.FieldVolume:
		return r.Volume, true
	case constants.FieldExpiry:
		return r.Expiry, true
	case constants.FieldBatch:
		return r.BatchCode, true
	}
	return "", false
}

// SetField assigns the named content field. Unknown names are ignored
// and reported via the return value.
func (r *LabelRecord) SetField(name, value string) bool {
	switch name {
	case constants.FieldName:
		r.Name = value
	case constants.FieldPrice:
		r.Price = value
	case constants.FieldVolume:
		r.Volume = value
	case constants.FieldExpiry:
		r.Expiry = value
	case constants.FieldBatch:
		r.BatchCode = value
	default:
		return false
	}
	return true
}

// Row renders the record as the ordered sink row, content fields first,
// timestamp last.
func (r LabelRecord) Row(at time.Time) []string {
	return []string{r.Name, r.Price, r.Volume, r.Expiry, r.BatchCode, at.Format(constants.TimestampLayout)}
}

// IsEmpty reports whether every content field is blank.
func (r LabelRecord) IsEmpty() bool {
	return r.Name == "" && r.Price == "" && r.Volume == "" && r.Expiry == "" && r.BatchCode == ""
}

// FieldCandidates maps a field name to the normalizer's best-guess
// string for one photographed region. A missing or empty entry means no
// confident match; it must never erase an existing draft value.
type FieldCandidates map[string]string

// Intake is one confirmed record as stored in the local history table.
type Intake struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     string    `db:"price" json:"price"`
	Volume    string    `db:"volume" json:"volume"`
	Expiry    string    `db:"expiry" json:"expiry"`
	BatchCode string    `db:"batch_code" json:"batch_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
