// Package export builds the downloadable zip of a window's raw records, one
// JSON file per day and collection, mirroring the files the dashboard's
// download button has always produced.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

// Archive packs the records into a zip, named <station>_<date>_<collection>.json
// per entry, dates and collections in ascending order so archives are
// reproducible for identical inputs.
func Archive(station string, byCollection map[string][]ion.RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	collections := make([]string, 0, len(byCollection))
	for tag := range byCollection {
		collections = append(collections, tag)
	}
	sort.Strings(collections)

	for _, tag := range collections {
		byDate := groupByDate(byCollection[tag])

		dates := make([]string, 0, len(byDate))
		for d := range byDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		for _, date := range dates {
			name := fmt.Sprintf("%s_%s_%s.json", station, date, tag)
			w, err := zw.Create(name)
			if err != nil {
				return nil, fmt.Errorf("create %s: %w", name, err)
			}
			payload, err := json.MarshalIndent(byDate[date], "", "  ")
			if err != nil {
				return nil, fmt.Errorf("marshal %s: %w", name, err)
			}
			if _, err := w.Write(payload); err != nil {
				return nil, fmt.Errorf("write %s: %w", name, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// groupByDate buckets records by their calendar day. Combined-timestamp
// records contribute their date prefix.
func groupByDate(recs []ion.RawRecord) map[string][]ion.RawRecord {
	out := make(map[string][]ion.RawRecord)
	for _, r := range recs {
		date := r.Date
		if date == "" && r.Timestamp != "" {
			date, _, _ = strings.Cut(r.Timestamp, " ")
		}
		if date == "" {
			continue
		}
		out[date] = append(out[date], r)
	}
	return out
}
