// Package tabular reads the entity table and reads and writes the ranking tables.
// All structural checks happen here so the engine only sees validated records.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/himanishpuri/CollabMatch/pkg/logger"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrDuplicateID   = errors.New("duplicate user_id")
	ErrEmptyID       = errors.New("empty user_id")
)

// Logger receives notices about rows that were degraded rather than rejected.
type Logger interface {
	Warnf(format string, args ...any)
}

// EntityColumns are the columns every entity table must carry.
var EntityColumns = []string{
	"user_id", "first_name", "last_name", "age", "genres", "roles",
	"skill_proficiency", "skill_engagement", "location", "ok_not_local",
	"weekly_time", "considers_age", "age_limit",
}

// Optional entity columns.
const (
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
	ColAudioFeatureRef = "audio_feature_ref"
)

// header maps column names to their index.
type header map[string]int

func readHeader(r *csv.Reader, required []string) (header, error) {
	names, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: table is empty", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h := make(header, len(names))
	for i, n := range names {
		if i == 0 {
			n = strings.TrimPrefix(n, "\ufeff")
		}
		h[strings.TrimSpace(n)] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return h, nil
}

// get returns the trimmed, NFC-normalized cell, or "" when the column is absent.
func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(row[i]))
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

// ReadEntitiesFile opens path and reads it with ReadEntities.
func ReadEntitiesFile(path string, log Logger) ([]models.EntityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening entity table: %w", err)
	}
	defer f.Close()
	return ReadEntities(f, log)
}

// ReadEntities parses the entity table. Missing columns and empty or duplicate ids are
// errors; unparseable optional values degrade to their documented defaults.
func ReadEntities(r io.Reader, log Logger) ([]models.EntityRecord, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, EntityColumns)
	if err != nil {
		return nil, err
	}

	var out []models.EntityRecord
	seen := make(map[string]int)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading entity table: %w", err)
		}

		id := h.get(row, "user_id")
		if id == "" {
			return nil, fmt.Errorf("%w on line %d", ErrEmptyID, line)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w %q on lines %d and %d", ErrDuplicateID, id, prev, line)
		}
		seen[id] = line

		e := models.EntityRecord{
			ID:               id,
			FirstName:        h.get(row, "first_name"),
			LastName:         h.get(row, "last_name"),
			Genres:           SplitSet(h.get(row, "genres")),
			Roles:            SplitSet(h.get(row, "roles")),
			SkillProficiency: SplitList(h.get(row, "skill_proficiency")),
			SkillEngagement:  SplitList(h.get(row, "skill_engagement")),
			WeeklyTime:       h.get(row, "weekly_time"),
			Age:              ParseIntField(h.get(row, "age")),
			ConsidersAge:     ParseBool(h.get(row, "considers_age")),
			AgeLimit:         ParseIntField(h.get(row, "age_limit")),
			OKNotLocal:       ParseBool(h.get(row, "ok_not_local")),
			LocationText:     h.get(row, "location"),
			AudioFeatureRef:  h.get(row, ColAudioFeatureRef),
		}

		if e.Age.State == models.FieldMalformed {
			log.Warnf("user %s: unparseable age %q, age scoring falls back to neutral", id, h.get(row, "age"))
		}

		if h.has(ColLatitude) || h.has(ColLongitude) {
			lat, lon := h.get(row, ColLatitude), h.get(row, ColLongitude)
			c, ok := ParseCoordinate(lat, lon)
			if ok {
				e.Location = c
			} else if lat != "" || lon != "" {
				log.Warnf("user %s: incomplete coordinate (%q, %q), treating location as unknown", id, lat, lon)
			}
		}

		out = append(out, e)
	}
	return out, nil
}

// SplitList splits a pipe-delimited cell, trimming items and dropping empty ones.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, "|") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SplitSet is SplitList with duplicates removed, keeping the first occurrence.
func SplitSet(s string) []string {
	items := SplitList(s)
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ParseBool accepts "true" in any case; everything else is false.
func ParseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// ParseIntField decides the tri-state of an optional integer cell.
func ParseIntField(s string) models.IntField {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.IntField{}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return models.IntField{State: models.FieldMalformed}
	}
	return models.IntField{Value: v, State: models.FieldValid}
}

// ParseCoordinate returns a coordinate only when both halves parse to finite numbers.
func ParseCoordinate(lat, lon string) (*models.Coordinate, bool) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || math.IsNaN(la) || math.IsInf(la, 0) {
		return nil, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil || math.IsNaN(lo) || math.IsInf(lo, 0) {
		return nil, false
	}
	return &models.Coordinate{Lat: la, Lon: lo}, true
}
