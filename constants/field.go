package constants

// Field names for a label record, in persisted-row order.
const (
	FieldName   = "name"
	FieldPrice  = "price"
	FieldVolume = "volume"
	FieldExpiry = "expiry"
	FieldBatch  = "batch_code"
)

// RowFields is the ordered set of content fields appended to the sink,
// followed by the generated timestamp.
var RowFields = []string{FieldName, FieldPrice, FieldVolume, FieldExpiry, FieldBatch}

// IsField reports whether name is one of the five editable record fields.
func IsField(name string) bool {
	for _, f := range RowFields {
		if f == name {
			return true
		}
	}
	return false
}

// TimestampLayout is the wall-clock format written with every confirmed row.
const TimestampLayout = "2006-01-02 15:04:05"

// MaxBarcodeDigits is the length above which a purely numeric batch
// candidate is treated as a barcode and rejected.
const MaxBarcodeDigits = 8
