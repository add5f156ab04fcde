package timedataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidFreq      = errors.New("frequency must be positive")

	errBlankValue = errors.New("blank value")
)

const maxLineBytes = 1024 * 1024

// TimestampLayouts are the accepted timestamp formats in order of precedence. Layouts without
// a zone are interpreted as UTC.
var TimestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// Record is a raw, unparsed sensor reading
type Record struct {
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// Observation is a parsed sensor reading
type Observation struct {
	T time.Time
	Y float64
}

// ParseTimestamp parses a timestamp string with any of the TimestampLayouts
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q, %w", s, ErrMalformedRecord)
}

// Parse converts the record into an observation. Blank values are reported separately from
// malformed records since they are expected in sensor feeds.
func (r Record) Parse() (Observation, error) {
	val := strings.TrimSpace(r.Value)
	if val == "" {
		return Observation{}, errBlankValue
	}
	t, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return Observation{}, err
	}
	y, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return Observation{}, fmt.Errorf("non-numeric value %q, %w", val, ErrMalformedRecord)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return Observation{}, fmt.Errorf("non-finite value %q, %w", val, ErrMalformedRecord)
	}
	return Observation{T: t, Y: y}, nil
}

// ParseRecords parses all records skipping blank values and malformed records. The number of
// malformed records skipped is returned.
func ParseRecords(records []Record) ([]Observation, int) {
	obs := make([]Observation, 0, len(records))
	var skipped int
	for _, r := range records {
		o, err := r.Parse()
		if err != nil {
			if !errors.Is(err, errBlankValue) {
				skipped++
			}
			continue
		}
		obs = append(obs, o)
	}
	return obs, skipped
}

// ReadJSONLines reads newline delimited JSON objects. Each object either maps timestamps to
// values, e.g. {"2024-01-01T00:00:00": "21.5"}, or is a single record with "timestamp" and
// "value" keys. Lines that are not valid JSON objects are skipped and counted.
func ReadJSONLines(r io.Reader) ([]Record, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []Record
	var skipped int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			skipped++
			continue
		}
		lineRecords, ok := objectRecords(obj)
		if !ok {
			skipped++
			continue
		}
		records = append(records, lineRecords...)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("unable to scan json lines, %w", err)
	}
	return records, skipped, nil
}

func objectRecords(obj map[string]any) ([]Record, bool) {
	if ts, exists := obj["timestamp"]; exists && len(obj) == 2 {
		tsStr, ok := ts.(string)
		if !ok {
			return nil, false
		}
		v, exists := obj["value"]
		if !exists {
			return nil, false
		}
		val, ok := valueString(v)
		if !ok {
			return nil, false
		}
		return []Record{{Timestamp: tsStr, Value: val}}, true
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		val, ok := valueString(obj[k])
		if !ok {
			// keep the record so it is counted as malformed during parsing
			val = fmt.Sprint(obj[k])
		}
		records = append(records, Record{Timestamp: k, Value: val})
	}
	return records, true
}

func valueString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Dedup keeps the last arriving observation for every identical timestamp
func Dedup(obs []Observation) []Observation {
	last := make(map[int64]int, len(obs))
	for i, o := range obs {
		last[o.T.UnixNano()] = i
	}
	out := make([]Observation, 0, len(last))
	for i, o := range obs {
		if last[o.T.UnixNano()] == i {
			out = append(out, o)
		}
	}
	return out
}

// Resample bins observations into buckets of freq floored on UTC time and averages each bucket.
// Buckets between the first and last observation with no points are left as NaN.
func Resample(obs []Observation, freq time.Duration) (*TimeDataset, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("got %s, %w", freq, ErrInvalidFreq)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations to resample, %w", ErrInsufficientData)
	}

	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	var first, last time.Time
	for i, o := range obs {
		bucket := o.T.UTC().Truncate(freq)
		key := bucket.UnixNano()
		sums[key] += o.Y
		counts[key]++
		if i == 0 || bucket.Before(first) {
			first = bucket
		}
		if i == 0 || bucket.After(last) {
			last = bucket
		}
	}

	n := int(last.Sub(first)/freq) + 1
	t := make([]time.Time, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		bucket := first.Add(time.Duration(i) * freq)
		t = append(t, bucket)
		key := bucket.UnixNano()
		if cnt := counts[key]; cnt > 0 {
			y = append(y, sums[key]/float64(cnt))
			continue
		}
		y = append(y, math.NaN())
	}
	return &TimeDataset{T: t, Y: y}, nil
}

// Interpolate fills NaN values by linear interpolation along the time axis between the nearest
// valid neighbors. Gaps at either end of the series cannot be bounded and return an error.
func Interpolate(td *TimeDataset) (*TimeDataset, error) {
	if td.Len() == 0 {
		return nil, fmt.Errorf("empty series, %w", ErrInsufficientData)
	}
	out := td.Copy()

	valid := make([]int, 0, len(out.Y))
	for i, v := range out.Y {
		if !math.IsNaN(v) {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid values in %d points, %w", len(out.Y), ErrInsufficientData)
	}
	if valid[0] != 0 {
		return nil, fmt.Errorf("leading gap of %d points cannot be bounded, %w", valid[0], ErrInsufficientData)
	}
	if lastIdx := valid[len(valid)-1]; lastIdx != len(out.Y)-1 {
		return nil, fmt.Errorf("trailing gap of %d points cannot be bounded, %w", len(out.Y)-1-lastIdx, ErrInsufficientData)
	}

	for k := 1; k < len(valid); k++ {
		a, b := valid[k-1], valid[k]
		if b-a < 2 {
			continue
		}
		span := out.T[b].Sub(out.T[a]).Seconds()
		for i := a + 1; i < b; i++ {
			frac := out.T[i].Sub(out.T[a]).Seconds() / span
			out.Y[i] = out.Y[a] + frac*(out.Y[b]-out.Y[a])
		}
	}
	return out, nil
}

// Normalize parses raw records into a sorted, de-duplicated series uniformly spaced by freq
// with gaps filled by time interpolation. Malformed records are skipped.
func Normalize(records []Record, freq time.Duration) (*TimeDataset, error) {
	obs, skipped := ParseRecords(records)
	if skipped > 0 {
		slog.Warn("skipped malformed records", "skipped", skipped, "total", len(records))
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no valid observations in %d records, %w", len(records), ErrInsufficientData)
	}

	td, err := Resample(Dedup(obs), freq)
	if err != nil {
		return nil, fmt.Errorf("unable to resample observations, %w", err)
	}
	td, err = Interpolate(td)
	if err != nil {
		return nil, fmt.Errorf("unable to interpolate resampled series, %w", err)
	}
	return td, nil
}
