// Package biomarker defines the 22-field voice measurement record used for
// Parkinson's screening and its validation rules. Field names follow the UCI
// Parkinsons dataset column headers so uploaded CSVs and stored artifacts
// agree on the schema.
package biomarker

// FieldCount is the number of voice-biomarker measurements in a record.
const FieldCount = 22

// FieldNames lists every required field in canonical order. Scaler and
// classifier parameters are aligned with this order.
var FieldNames = [FieldCount]string{
	"MDVP:Fo(Hz)",
	"MDVP:Fhi(Hz)",
	"MDVP:Flo(Hz)",
	"MDVP:Jitter(%)",
	"MDVP:Jitter(Abs)",
	"MDVP:RAP",
	"MDVP:PPQ",
	"Jitter:DDP",
	"MDVP:Shimmer",
	"MDVP:Shimmer(dB)",
	"Shimmer:APQ3",
	"Shimmer:APQ5",
	"MDVP:APQ",
	"Shimmer:DDA",
	"NHR",
	"HNR",
	"RPDE",
	"DFA",
	"spread1",
	"spread2",
	"D2",
	"PPE",
}

var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	idx := make(map[string]int, FieldCount)
	for i, name := range FieldNames {
		idx[name] = i
	}
	return idx
}

// FieldIndex returns the canonical position of a field name, or -1 when the
// name is not part of the biomarker schema.
func FieldIndex(name string) int {
	if i, ok := fieldIndex[name]; ok {
		return i
	}
	return -1
}

// Range is the plausible band for a single measurement. Values outside the
// band are clinically implausible and usually indicate unit confusion or a
// transcription error rather than pathology.
type Range struct {
	Min float64
	Max float64
}

// PlausibleRanges holds the soft validation band per field. The bands come
// from the measurement definitions, not from the training distribution.
var PlausibleRanges = map[string]Range{
	"MDVP:Fo(Hz)":      {50.0, 300.0},
	"MDVP:Fhi(Hz)":     {100.0, 500.0},
	"MDVP:Flo(Hz)":     {50.0, 200.0},
	"MDVP:Jitter(%)":   {0.0, 10.0},
	"MDVP:Jitter(Abs)": {0.0, 0.01},
	"MDVP:RAP":         {0.0, 0.1},
	"MDVP:PPQ":         {0.0, 0.1},
	"Jitter:DDP":       {0.0, 0.3},
	"MDVP:Shimmer":     {0.0, 1.0},
	"MDVP:Shimmer(dB)": {0.0, 5.0},
	"Shimmer:APQ3":     {0.0, 0.5},
	"Shimmer:APQ5":     {0.0, 0.5},
	"MDVP:APQ":         {0.0, 1.0},
	"Shimmer:DDA":      {0.0, 1.5},
	"NHR":              {0.0, 1.0},
	"HNR":              {0.0, 40.0},
	"RPDE":             {0.0, 1.0},
	"DFA":              {0.0, 1.0},
	"spread1":          {-10.0, 0.0},
	"spread2":          {0.0, 1.0},
	"D2":               {0.0, 5.0},
	"PPE":              {0.0, 1.0},
}
