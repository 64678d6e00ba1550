package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

var csvHeader = []string{
	"url", "protocol", "last_sync", "completion_pct", "delay",
	"duration_avg", "duration_stddev", "score", "active",
	"country", "country_code", "isos", "ipv4", "ipv6", "details",
	"transfer_rate", "weighted_score",
}

// CSV serializes the full record set, one row per mirror, with a header row.
// Absent optional fields serialize as empty cells.
func CSV(w io.Writer, mirrors mirror.Mirrors) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range mirrors {
		m := &mirrors[i]
		row := []string{
			m.URL,
			m.Protocol,
			strDeref(m.LastSync),
			floatCell(m.CompletionPct),
			intCell(m.Delay),
			floatCell(m.DurationAvg),
			floatCell(m.DurationStddev),
			floatCell(m.Score),
			strconv.FormatBool(m.Active),
			m.Country,
			m.CountryCode,
			strconv.FormatBool(m.ISOs),
			strconv.FormatBool(m.IPv4),
			strconv.FormatBool(m.IPv6),
			m.Details,
			floatCell(m.TransferRate),
			floatCell(m.WeightedScore),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", m.URL, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the statistics CSV to path. The file must not already
// exist.
func WriteCSVFile(fs afero.Fs, path string, mirrors mirror.Mirrors) error {
	f, err := createNew(fs, path)
	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}
	defer f.Close()

	if err := CSV(f, mirrors); err != nil {
		return fmt.Errorf("writing stats file: %w", err)
	}
	return nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
