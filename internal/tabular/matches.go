package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Column layouts of the ranking tables.
var (
	MetadataColumns = []string{
		"user_id", "user_name", "match_rank", "matched_user_id", "matched_user_name",
		"match_score", "genre_score", "role_score", "age_score", "location_score",
		"distance_km", "genre_matches", "role_matches", "age_compatible", "matched_location",
	}
	ConsolidatedColumns = []string{
		"user_id", "user_name", "match_rank", "matched_user_id", "matched_user_name",
		"final_score", "location_score", "genre_score", "audio_score", "role_score", "age_score",
		"distance_km", "genre_matches", "role_matches", "age_compatible", "matched_location",
	}

	// metadataRequired are the columns consolidation cannot work without.
	metadataRequired = []string{
		"user_id", "user_name", "matched_user_id", "matched_user_name",
		"genre_score", "role_score", "age_score", "location_score",
	}
)

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FormatScore renders a display score rounded to places decimals.
func FormatScore(v float64, places int) string {
	return strconv.FormatFloat(Round(v, places), 'f', -1, 64)
}

func formatDistance(d *float64) string {
	if d == nil {
		return ""
	}
	return FormatScore(*d, 2)
}

// WriteMetadataCSV writes one row per metadata edge, ranks starting at 1.
func WriteMetadataCSV(w io.Writer, lists []models.RankedMatchList) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetadataColumns); err != nil {
		return err
	}
	for _, l := range lists {
		for i, e := range l.Edges {
			c := e.Components
			row := []string{
				l.SourceID, l.SourceName, strconv.Itoa(i + 1), e.TargetID, e.TargetName,
				FormatScore(e.Score, 2),
				FormatScore(c.Genre, 2), FormatScore(c.Role, 2), FormatScore(c.Age, 2), FormatScore(c.Location, 2),
				formatDistance(e.Details.DistanceKm),
				strings.Join(e.Details.GenreMatches, "|"),
				strings.Join(e.Details.RoleMatches, "|"),
				strconv.FormatBool(e.Details.AgeCompatible),
				e.TargetLocation,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteConsolidatedCSV writes the final ranking. Component columns hold the normalized
// fraction as a percentage.
func WriteConsolidatedCSV(w io.Writer, lists []models.RankedMatchList) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ConsolidatedColumns); err != nil {
		return err
	}
	for _, l := range lists {
		for i, e := range l.Edges {
			c := e.Components
			row := []string{
				l.SourceID, l.SourceName, strconv.Itoa(i + 1), e.TargetID, e.TargetName,
				FormatScore(e.Score, 2),
				FormatScore(c.Location*100, 2), FormatScore(c.Genre*100, 2), FormatScore(c.Audio*100, 2),
				FormatScore(c.Role*100, 2), FormatScore(c.Age*100, 2),
				formatDistance(e.Details.DistanceKm),
				strings.Join(e.Details.GenreMatches, "|"),
				strings.Join(e.Details.RoleMatches, "|"),
				strconv.FormatBool(e.Details.AgeCompatible),
				e.TargetLocation,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAudioCSV writes the wide audio table: one row per source with k groups of
// match_{n}_user_id, match_{n}_artist, match_{n}_score. Missing ranks stay empty.
func WriteAudioCSV(w io.Writer, lists []models.RankedMatchList, k int) error {
	cw := csv.NewWriter(w)
	head := []string{"user_id", "artist_name"}
	for n := 1; n <= k; n++ {
		head = append(head,
			fmt.Sprintf("match_%d_user_id", n),
			fmt.Sprintf("match_%d_artist", n),
			fmt.Sprintf("match_%d_score", n))
	}
	if err := cw.Write(head); err != nil {
		return err
	}
	for _, l := range lists {
		row := make([]string, len(head))
		row[0], row[1] = l.SourceID, l.SourceName
		for n, e := range l.Edges {
			if n >= k {
				break
			}
			base := 2 + n*3
			row[base] = e.TargetID
			row[base+1] = e.TargetName
			row[base+2] = FormatScore(e.Score, 4)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type matchDocument struct {
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	Score         float64  `json:"score"`
	GenreMatches  []string `json:"genre_matches"`
	RoleMatches   []string `json:"role_matches"`
	AgeCompatible bool     `json:"age_compatible"`
	GenreScore    float64  `json:"genre_score"`
	RoleScore     float64  `json:"role_score"`
	AgeScore      float64  `json:"age_score"`
	LocationScore float64  `json:"location_score"`
	DistanceKm    *float64 `json:"distance_km"`
	Location      string   `json:"location"`
}

type userDocument struct {
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Genres       []string        `json:"genres"`
	Roles        []string        `json:"roles"`
	Age          *int            `json:"age"`
	ConsidersAge bool            `json:"considers_age"`
	AgeLimit     *int            `json:"age_limit"`
	Location     string          `json:"location"`
	TopMatches   []matchDocument `json:"top_matches"`
}

func intPtr(f models.IntField) *int {
	if !f.Valid() {
		return nil
	}
	v := f.Value
	return &v
}

// WriteMetadataJSON writes the per-user detail document: the user's own profile and
// their top metadata matches. Users appear in entity order.
func WriteMetadataJSON(w io.Writer, entities []models.EntityRecord, lists []models.RankedMatchList) error {
	byID := make(map[string]*models.RankedMatchList, len(lists))
	for i := range lists {
		byID[lists[i].SourceID] = &lists[i]
	}

	docs := make([]userDocument, 0, len(entities))
	for i := range entities {
		e := &entities[i]
		doc := userDocument{
			UserID:       e.ID,
			Name:         e.Name(),
			Genres:       nonNil(e.Genres),
			Roles:        nonNil(e.Roles),
			Age:          intPtr(e.Age),
			ConsidersAge: e.ConsidersAge,
			AgeLimit:     intPtr(e.AgeLimit),
			Location:     e.LocationText,
			TopMatches:   []matchDocument{},
		}
		if l, ok := byID[e.ID]; ok {
			for _, m := range l.Edges {
				var dist *float64
				if m.Details.DistanceKm != nil {
					d := Round(*m.Details.DistanceKm, 2)
					dist = &d
				}
				doc.TopMatches = append(doc.TopMatches, matchDocument{
					UserID:        m.TargetID,
					Name:          m.TargetName,
					Score:         Round(m.Score, 2),
					GenreMatches:  nonNil(m.Details.GenreMatches),
					RoleMatches:   nonNil(m.Details.RoleMatches),
					AgeCompatible: m.Details.AgeCompatible,
					GenreScore:    Round(m.Components.Genre, 2),
					RoleScore:     Round(m.Components.Role, 2),
					AgeScore:      Round(m.Components.Age, 2),
					LocationScore: Round(m.Components.Location, 2),
					DistanceKm:    dist,
					Location:      m.TargetLocation,
				})
			}
		}
		docs = append(docs, doc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func parseScore(h header, row []string, col string, line int) (float64, error) {
	s := h.get(row, col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", line, col, err)
	}
	return v, nil
}

// ReadMetadataMatches reads a table written by WriteMetadataCSV back into lists, grouped
// by user_id in first-appearance order with rows kept in file order.
func ReadMetadataMatches(r io.Reader) ([]models.RankedMatchList, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, metadataRequired)
	if err != nil {
		return nil, err
	}

	var lists []models.RankedMatchList
	index := make(map[string]int)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading metadata matches: %w", err)
		}

		src := h.get(row, "user_id")
		if src == "" {
			return nil, fmt.Errorf("%w on line %d", ErrEmptyID, line)
		}
		dst := h.get(row, "matched_user_id")
		if dst == "" {
			return nil, fmt.Errorf("%w: matched_user_id on line %d", ErrEmptyID, line)
		}
		e := models.MatchEdge{
			SourceID:       src,
			TargetID:       dst,
			TargetName:     h.get(row, "matched_user_name"),
			TargetLocation: h.get(row, "matched_location"),
			Details: models.MatchDetails{
				GenreMatches:  SplitList(h.get(row, "genre_matches")),
				RoleMatches:   SplitList(h.get(row, "role_matches")),
				AgeCompatible: ParseBool(h.get(row, "age_compatible")),
			},
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"genre_score", &e.Components.Genre},
			{"role_score", &e.Components.Role},
			{"age_score", &e.Components.Age},
			{"location_score", &e.Components.Location},
			{"match_score", &e.Score},
		} {
			if *f.dst, err = parseScore(h, row, f.col, line); err != nil {
				return nil, err
			}
		}
		if d := h.get(row, "distance_km"); d != "" {
			v, err := strconv.ParseFloat(d, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column distance_km: %w", line, err)
			}
			e.Details.DistanceKm = &v
		}

		i, ok := index[src]
		if !ok {
			i = len(lists)
			index[src] = i
			lists = append(lists, models.RankedMatchList{
				Kind:       models.KindMetadata,
				SourceID:   src,
				SourceName: h.get(row, "user_name"),
			})
		}
		lists[i].Edges = append(lists[i].Edges, e)
	}
	return lists, nil
}

// ReadAudioMatches reads the wide audio table. Empty rank groups are skipped.
func ReadAudioMatches(r io.Reader) ([]models.RankedMatchList, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, []string{"user_id"})
	if err != nil {
		return nil, err
	}

	var lists []models.RankedMatchList
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading audio matches: %w", err)
		}

		l := models.RankedMatchList{
			Kind:       models.KindAudio,
			SourceID:   h.get(row, "user_id"),
			SourceName: h.get(row, "artist_name"),
		}
		if l.SourceID == "" {
			return nil, fmt.Errorf("%w on line %d", ErrEmptyID, line)
		}
		for n := 1; h.has(fmt.Sprintf("match_%d_user_id", n)); n++ {
			target := h.get(row, fmt.Sprintf("match_%d_user_id", n))
			if target == "" {
				continue
			}
			s, err := parseScore(h, row, fmt.Sprintf("match_%d_score", n), line)
			if err != nil {
				return nil, err
			}
			l.Edges = append(l.Edges, models.MatchEdge{
				SourceID:   l.SourceID,
				TargetID:   target,
				TargetName: h.get(row, fmt.Sprintf("match_%d_artist", n)),
				Components: models.ComponentScores{Audio: s},
				Score:      s,
			})
		}
		lists = append(lists, l)
	}
	return lists, nil
}
