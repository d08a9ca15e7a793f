package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"
)

// SeedRow is one line of a seed file.
type SeedRow struct {
	Resource *resource.Resource
	Details  types.Document
}

// ReadResourcesCSV reads a tab-separated seed file with the header
// name, tags, address, latitude, longitude, info. Tags are ';'-separated;
// latitude and longitude may both be empty.
func ReadResourcesCSV(filePath string) ([]SeedRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readResources(file)
}

func readResources(r io.Reader) ([]SeedRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = 6
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []SeedRow
	for i, record := range records {
		if i == 0 {
			continue
		}
		row, err := parseSeedRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseSeedRecord(record []string) (SeedRow, error) {
	name := strings.TrimSpace(record[0])
	var tags []string
	for _, tag := range strings.Split(record[1], ";") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	var point *types.GeoPoint
	if record[3] != "" || record[4] != "" {
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return SeedRow{}, fmt.Errorf("latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return SeedRow{}, fmt.Errorf("longitude: %w", err)
		}
		point = &types.GeoPoint{Lat: lat, Lon: lon}
	}

	var opts []resource.Option
	address := strings.TrimSpace(record[2])
	if point != nil || address != "" {
		loc, err := types.NewLocation(point, address)
		if err != nil {
			return SeedRow{}, err
		}
		opts = append(opts, resource.WithLocation(loc))
	}

	r, err := resource.New(name, tags, opts...)
	if err != nil {
		return SeedRow{}, err
	}
	details := types.Document{}
	if info := strings.TrimSpace(record[5]); info != "" {
		details["info"] = info
	}
	return SeedRow{Resource: r, Details: details}, nil
}
