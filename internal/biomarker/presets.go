package biomarker

// Preset profiles give the dashboard's quick-fill forms typical measurement
// sets. Values mirror the reference profiles shipped with the training data.
var Presets = map[string]Record{
	"healthy": mustRecord(map[string]float64{
		"MDVP:Fo(Hz)": 154.23, "MDVP:Fhi(Hz)": 204.91, "MDVP:Flo(Hz)": 116.68,
		"MDVP:Jitter(%)": 0.32, "MDVP:Jitter(Abs)": 0.000022, "MDVP:RAP": 0.0018,
		"MDVP:PPQ": 0.0019, "Jitter:DDP": 0.0054, "MDVP:Shimmer": 0.018,
		"MDVP:Shimmer(dB)": 0.168, "Shimmer:APQ3": 0.0081, "Shimmer:APQ5": 0.0099,
		"MDVP:APQ": 0.020, "Shimmer:DDA": 0.024, "NHR": 0.011, "HNR": 26.77,
		"RPDE": 0.427, "DFA": 0.655, "spread1": -6.843, "spread2": 0.177,
		"D2": 2.042, "PPE": 0.144,
	}),
	"mild": mustRecord(map[string]float64{
		"MDVP:Fo(Hz)": 144.33, "MDVP:Fhi(Hz)": 182.56, "MDVP:Flo(Hz)": 105.75,
		"MDVP:Jitter(%)": 0.58, "MDVP:Jitter(Abs)": 0.000037, "MDVP:RAP": 0.0033,
		"MDVP:PPQ": 0.0035, "Jitter:DDP": 0.0099, "MDVP:Shimmer": 0.032,
		"MDVP:Shimmer(dB)": 0.298, "Shimmer:APQ3": 0.015, "Shimmer:APQ5": 0.018,
		"MDVP:APQ": 0.035, "Shimmer:DDA": 0.045, "NHR": 0.019, "HNR": 22.45,
		"RPDE": 0.498, "DFA": 0.702, "spread1": -6.123, "spread2": 0.205,
		"D2": 2.387, "PPE": 0.189,
	}),
	"severe": mustRecord(map[string]float64{
		"MDVP:Fo(Hz)": 118.55, "MDVP:Fhi(Hz)": 157.34, "MDVP:Flo(Hz)": 88.45,
		"MDVP:Jitter(%)": 1.15, "MDVP:Jitter(Abs)": 0.000077, "MDVP:RAP": 0.0074,
		"MDVP:PPQ": 0.0081, "Jitter:DDP": 0.022, "MDVP:Shimmer": 0.061,
		"MDVP:Shimmer(dB)": 0.547, "Shimmer:APQ3": 0.029, "Shimmer:APQ5": 0.037,
		"MDVP:APQ": 0.071, "Shimmer:DDA": 0.087, "NHR": 0.041, "HNR": 16.89,
		"RPDE": 0.598, "DFA": 0.765, "spread1": -4.567, "spread2": 0.271,
		"D2": 2.956, "PPE": 0.298,
	}),
}

func mustRecord(raw map[string]float64) Record {
	rec, err := FromMap(raw, PolicyReject)
	if err != nil {
		panic("biomarker: bad preset profile: " + err.Error())
	}
	return rec
}
