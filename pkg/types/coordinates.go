package types

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinates represents a PostGIS Point expressed in geography format.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value produces an EWKT literal so Postgres can cast the geography.
func (c Coordinates) Value() (driver.Value, error) {
	return fmt.Sprintf("SRID=4326;POINT(%f %f)", c.Lng, c.Lat), nil
}

// Scan accepts WKT/EWKT or WKB bytes returned by Postgres.
func (c *Coordinates) Scan(value interface{}) error {
	if value == nil {
		*c = Coordinates{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return c.fromText(v)
	case []byte:
		text := strings.TrimSpace(string(v))
		upper := strings.ToUpper(text)
		if strings.HasPrefix(upper, "SRID=") || strings.HasPrefix(upper, "POINT(") {
			return c.fromText(text)
		}
		return c.fromWKB(v)
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return c.fromText(stringer.String())
		}
		return fmt.Errorf("coordinates: unsupported scan type %T", value)
	}
}

func (c *Coordinates) fromText(raw string) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		if idx := strings.Index(raw, ";"); idx != -1 {
			raw = raw[idx+1:]
		}
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(raw), "POINT(") || !strings.HasSuffix(raw, ")") {
		return fmt.Errorf("coordinates: unsupported text %q", raw)
	}

	content := strings.TrimSpace(raw[len("POINT(") : len(raw)-1])
	segments := strings.Fields(content)
	if len(segments) != 2 {
		return fmt.Errorf("coordinates: unexpected POINT content %q", content)
	}

	lng, err := parseCoordinate(segments[0])
	if err != nil {
		return err
	}
	lat, err := parseCoordinate(segments[1])
	if err != nil {
		return err
	}

	c.Lng = lng
	c.Lat = lat
	return nil
}

func (c *Coordinates) fromWKB(raw []byte) error {
	if len(raw) < 21 {
		return fmt.Errorf("coordinates: wkb too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("coordinates: invalid byte order %d", raw[0])
	}

	geomType := order.Uint32(raw[1:5])
	if geomType != 1 {
		return fmt.Errorf("coordinates: unexpected geometry type %d", geomType)
	}

	c.Lng = math.Float64frombits(order.Uint64(raw[5:13]))
	c.Lat = math.Float64frombits(order.Uint64(raw[13:21]))
	return nil
}

func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("coordinates: empty coordinate")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("coordinates: parse coordinate %w", err)
	}
	return f, nil
}
