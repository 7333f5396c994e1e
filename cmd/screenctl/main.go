package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"voicewell/internal/biomarker"
	"voicewell/internal/client"
	"voicewell/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// screenctl runs batch screening over a CSV of voice measurements, either
// locally against a model artifact directory or remotely against a running
// voicewell server.
func main() {
	var (
		csvPath   = flag.String("csv", "", "Path to input CSV with biomarker columns")
		modelsDir = flag.String("models", "models", "Path to model artifact directory (local mode)")
		serverURL = flag.String("server", "", "Base URL of a running voicewell server (remote mode)")
		user      = flag.String("user", "", "Username for remote mode")
		pass      = flag.String("pass", "", "Password for remote mode")
		outPath   = flag.String("out", "", "Output CSV path (default stdout)")
		threshold = flag.Float64("threshold", model.DefaultThreshold, "Classification threshold")
		policy    = flag.String("policy", string(biomarker.PolicyWarn), "Out-of-range policy: warn or reject")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *csvPath == "" {
		log.Fatal().Msg("-csv is required")
	}

	var (
		results   []model.PredictionResult
		rowErrors []string
	)
	if *serverURL != "" {
		results, rowErrors, err = runRemote(*serverURL, *user, *pass, *csvPath)
	} else {
		results, rowErrors, err = runLocal(*modelsDir, *csvPath, *threshold, biomarker.RangePolicy(*policy))
	}
	if err != nil {
		log.Fatal().Err(err).Msg("batch screening failed")
	}

	for _, re := range rowErrors {
		log.Warn().Str("error", re).Msg("row rejected")
	}

	if err := writeResults(*outPath, results); err != nil {
		log.Fatal().Err(err).Msg("failed to write results")
	}

	positives := 0
	for _, r := range results {
		if r.Label == model.LabelParkinsons {
			positives++
		}
	}
	log.Info().
		Int("screened", len(results)).
		Int("rejected", len(rowErrors)).
		Int("positive", positives).
		Msg("batch screening complete")
}

func runLocal(modelsDir, csvPath string, threshold float64, policy biomarker.RangePolicy) ([]model.PredictionResult, []string, error) {
	registry, err := model.NewRegistry(modelsDir)
	if err != nil {
		return nil, nil, err
	}
	artifact, err := model.Load(registry.ActiveDir())
	if err != nil {
		return nil, nil, fmt.Errorf("load artifact: %w", err)
	}
	pipeline := model.NewPipeline(artifact, threshold, policy, nil)

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, rowErrs, err := biomarker.ReadCSV(f, policy)
	if err != nil {
		return nil, nil, err
	}

	results := make([]model.PredictionResult, 0, len(records))
	for _, rec := range records {
		result, err := pipeline.Run(rec)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, result)
	}

	errStrings := make([]string, len(rowErrs))
	for i, re := range rowErrs {
		errStrings[i] = re.Error()
	}
	return results, errStrings, nil
}

func runRemote(serverURL, user, pass, csvPath string) ([]model.PredictionResult, []string, error) {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, nil, err
	}

	c := client.New(serverURL, 30*time.Second)
	if user != "" {
		if err := c.Login(user, pass); err != nil {
			return nil, nil, err
		}
	}

	resp, err := c.PredictCSV(data)
	if err != nil {
		return nil, nil, err
	}
	return resp.Results, resp.RowErrors, nil
}

func writeResults(outPath string, results []model.PredictionResult) error {
	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write([]string{"row", "label", "confidence", "degraded"}); err != nil {
		return err
	}
	for i, r := range results {
		rec := []string{
			strconv.Itoa(i + 1),
			string(r.Label),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			strconv.FormatBool(r.Degraded),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}
