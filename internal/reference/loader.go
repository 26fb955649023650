package reference

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Column names of the raw reference table.
const (
	ColRouteID         = "route_id"
	ColStartLocation   = "start_location"
	ColDestination     = "destination"
	ColModes           = "modes"
	ColDistanceKm      = "distance_km"
	ColExtraDistanceKm = "extra_distance_km"
	ColNotes           = "notes"
	ColTransportMode   = "transport_mode"
	ColCO2PerKm        = "co2_per_km"
	ColSpeedKmH        = "speed_km_h"
)

// RequiredColumns are the columns every reference table must carry.
var RequiredColumns = []string{
	ColRouteID,
	ColStartLocation,
	ColDestination,
	ColModes,
	ColDistanceKm,
	ColExtraDistanceKm,
	ColNotes,
	ColTransportMode,
	ColCO2PerKm,
	ColSpeedKmH,
}

// RawTable is an untyped tabular dataset as read from a Source.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Source provides the raw reference table.
type Source interface {
	// Read returns the full table. Row order must be stable.
	Read(ctx context.Context) (*RawTable, error)
	// Name identifies the source in errors and logs.
	Name() string
}

// Load reads src and splits it into a mode table and a route table.
// Rows with an empty route_id are mode definitions, all others are routes.
//
// Every mode used by a route, and every name in requiredModes, must be
// defined in the table or Load returns an *UnknownModeError.
func Load(ctx context.Context, src Source, requiredModes ...string) (*Tables, error) {
	raw, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading reference source %s: %w", src.Name(), err)
	}

	idx, err := indexColumns(src.Name(), raw.Columns)
	if err != nil {
		return nil, err
	}

	modes := newModeTable()
	var routes []RouteRecord

	for i, row := range raw.Rows {
		rowNum := i + 1
		if idx.get(row, ColRouteID) == "" {
			mode, err := parseMode(idx, row, rowNum)
			if err != nil {
				return nil, err
			}
			if modes.Has(mode.Name) {
				return nil, &RowError{Row: rowNum, Column: ColTransportMode, Value: mode.Name, Err: ErrDuplicateMode}
			}
			modes.byName[mode.Name] = len(modes.modes)
			modes.modes = append(modes.modes, mode)
			continue
		}

		route, err := parseRoute(idx, row, rowNum)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	for _, r := range routes {
		for _, leg := range r.Modes {
			if !modes.Has(leg) {
				return nil, &UnknownModeError{Mode: leg, RouteID: r.RouteID}
			}
		}
	}
	for _, name := range requiredModes {
		if !modes.Has(name) {
			return nil, &UnknownModeError{Mode: name}
		}
	}

	return &Tables{
		Modes:  modes,
		Routes: &RouteTable{routes: routes},
	}, nil
}

// columnIndex maps column names to their position in a row.
type columnIndex map[string]int

func indexColumns(source string, columns []string) (columnIndex, error) {
	idx := make(columnIndex, len(columns))
	for i, c := range columns {
		idx[strings.TrimSpace(c)] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Source: source, Missing: missing}
	}
	return idx, nil
}

// get returns the trimmed cell for column, or "" when the row is short.
func (idx columnIndex) get(row []string, column string) string {
	i := idx[column]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseMode(idx columnIndex, row []string, rowNum int) (TransportMode, error) {
	name := idx.get(row, ColTransportMode)
	if name == "" {
		return TransportMode{}, &RowError{
			Row: rowNum, Column: ColTransportMode, Value: name,
			Err: fmt.Errorf("%w: mode definition without a name", ErrInvalidRow),
		}
	}

	co2, err := parseFloat(idx, row, rowNum, ColCO2PerKm, false)
	if err != nil {
		return TransportMode{}, err
	}
	speed, err := parseFloat(idx, row, rowNum, ColSpeedKmH, false)
	if err != nil {
		return TransportMode{}, err
	}
	if speed <= 0 {
		return TransportMode{}, &RowError{
			Row: rowNum, Column: ColSpeedKmH, Value: idx.get(row, ColSpeedKmH),
			Err: fmt.Errorf("%w: speed must be positive", ErrInvalidRow),
		}
	}

	return TransportMode{Name: name, CO2PerKm: co2, SpeedKmH: speed}, nil
}

func parseRoute(idx columnIndex, row []string, rowNum int) (RouteRecord, error) {
	legs := SplitModes(idx.get(row, ColModes))
	if len(legs) == 0 {
		return RouteRecord{}, &RowError{
			Row: rowNum, Column: ColModes, Value: idx.get(row, ColModes),
			Err: fmt.Errorf("%w: route without modes", ErrInvalidRow),
		}
	}

	distance, err := parseFloat(idx, row, rowNum, ColDistanceKm, false)
	if err != nil {
		return RouteRecord{}, err
	}
	extra, err := parseFloat(idx, row, rowNum, ColExtraDistanceKm, true)
	if err != nil {
		return RouteRecord{}, err
	}

	return RouteRecord{
		RouteID:         idx.get(row, ColRouteID),
		StartLocation:   idx.get(row, ColStartLocation),
		Destination:     idx.get(row, ColDestination),
		Modes:           legs,
		DistanceKm:      distance,
		ExtraDistanceKm: extra,
		Notes:           idx.get(row, ColNotes),
	}, nil
}

// parseFloat parses a non-negative number. An empty cell is 0 when
// allowEmpty is set and an error otherwise.
func parseFloat(idx columnIndex, row []string, rowNum int, column string, allowEmpty bool) (float64, error) {
	value := idx.get(row, column)
	if value == "" {
		if allowEmpty {
			return 0, nil
		}
		return 0, &RowError{Row: rowNum, Column: column, Value: value,
			Err: fmt.Errorf("%w: value required", ErrInvalidRow)}
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &RowError{Row: rowNum, Column: column, Value: value,
			Err: fmt.Errorf("%w: %v", ErrInvalidRow, err)}
	}
	if f < 0 {
		return 0, &RowError{Row: rowNum, Column: column, Value: value,
			Err: fmt.Errorf("%w: value must not be negative", ErrInvalidRow)}
	}
	return f, nil
}
