package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SoDaHeaderLines is the number of metadata lines preceding the hourly rows
// in a SoDa HC3-METEO export.
const SoDaHeaderLines = 32

// sodaGHIColumn is the ';'-separated column holding global horizontal irradiance.
const sodaGHIColumn = 2

// ReadSoDaIrradiance loads one irradiance sample per hour from a SoDa export.
func ReadSoDaIrradiance(path string, headerLines int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open irradiance file: %w", err)
	}
	defer f.Close()
	samples, err := ParseSoDaIrradiance(f, headerLines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ParseSoDaIrradiance reads hourly GHI values after skipping headerLines lines.
// Blank lines after the header are ignored; any other malformed row is an
// error naming its line number.
func ParseSoDaIrradiance(r io.Reader, headerLines int) ([]float64, error) {
	if headerLines < 0 {
		return nil, fmt.Errorf("header line count must be non-negative, got %d", headerLines)
	}
	scanner := bufio.NewScanner(r)
	samples := make([]float64, 0, 8760)
	line := 0
	for scanner.Scan() {
		line++
		if line <= headerLines {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ";")
		if len(fields) <= sodaGHIColumn {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, sodaGHIColumn+1, len(fields))
		}
		ghi, err := strconv.Atoi(strings.TrimSpace(fields[sodaGHIColumn]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse irradiance: %w", line, err)
		}
		samples = append(samples, float64(ghi))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// ConstantProfile returns hours samples all equal to value.
func ConstantProfile(hours int, value float64) []float64 {
	profile := make([]float64, hours)
	for i := range profile {
		profile[i] = value
	}
	return profile
}
