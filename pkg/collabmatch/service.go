package collabmatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/CollabMatch/internal/tabular"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/audio"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/consolidate"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/ranking"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/scoring"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch/similarity"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// matchService is the default implementation of the Service interface.
type matchService struct {
	storage      Storage
	log          Logger
	config       *Config
	scorer       *scoring.Scorer
	consolidator *consolidate.Consolidator
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = models.DefaultTopK
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	scorer, err := scoring.NewScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}
	cons, err := consolidate.New(cfg.Weights, cfg.Consolidation, cfg.TopK)
	if err != nil {
		return nil, err
	}

	stor := cfg.Storage
	if stor == nil {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &matchService{
		storage:      stor,
		log:          cfg.Logger,
		config:       cfg,
		scorer:       scorer,
		consolidator: cons,
	}, nil
}

// LoadEntities reads and validates the entity table.
func (s *matchService) LoadEntities(path string) ([]models.EntityRecord, error) {
	entities, err := tabular.ReadEntitiesFile(path, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loaded %d entities from %s", len(entities), path)
	return entities, nil
}

// AttachFeatures copies stored feature vectors onto the matching entities and returns
// how many entities received one.
func (s *matchService) AttachFeatures(entities []models.EntityRecord) (int, error) {
	vectors, err := s.storage.LoadFeatures()
	if err != nil {
		return 0, fmt.Errorf("loading feature vectors: %w", err)
	}
	attached := 0
	for i := range entities {
		if v, ok := vectors[entities[i].ID]; ok {
			entities[i].AudioFeatures = v
			attached++
		}
	}
	if orphans := len(vectors) - attached; orphans > 0 {
		s.log.Debugf("%d stored vectors belong to users not in the entity table", orphans)
	}
	return attached, nil
}

// RankMetadata scores every ordered pair with the metadata scorer.
func (s *matchService) RankMetadata(ctx context.Context, entities []models.EntityRecord) ([]models.RankedMatchList, error) {
	asm := &ranking.Assembler{K: s.config.TopK, Workers: s.config.Workers}
	edges, err := asm.Assemble(ctx, len(entities), func(i, j int) (models.MatchEdge, bool) {
		return s.scorer.Score(&entities[i], &entities[j]), true
	})
	if err != nil {
		return nil, err
	}

	lists := make([]models.RankedMatchList, len(entities))
	for i := range entities {
		lists[i] = models.RankedMatchList{
			Kind:       models.KindMetadata,
			SourceID:   entities[i].ID,
			SourceName: entities[i].Name(),
			Edges:      edges[i],
		}
	}
	return lists, nil
}

// RankAudio ranks entities that carry feature vectors by cosine similarity.
func (s *matchService) RankAudio(ctx context.Context, entities []models.EntityRecord) ([]models.RankedMatchList, error) {
	engine := &similarity.Engine{K: s.config.TopK, Workers: s.config.Workers}
	return engine.Rank(ctx, entities)
}

func (s *matchService) Consolidate(metadata, audio []models.RankedMatchList) []models.RankedMatchList {
	return s.consolidator.Consolidate(metadata, audio)
}

// ConsolidateFiles rebuilds the final ranking from previously written metadata and
// audio tables.
func (s *matchService) ConsolidateFiles(metadataCSV, audioCSV string) ([]models.RankedMatchList, error) {
	meta, err := readTable(metadataCSV, tabular.ReadMetadataMatches)
	if err != nil {
		return nil, fmt.Errorf("metadata matches: %w", err)
	}
	var aud []models.RankedMatchList
	if audioCSV != "" {
		if aud, err = readTable(audioCSV, tabular.ReadAudioMatches); err != nil {
			return nil, fmt.Errorf("audio matches: %w", err)
		}
	}
	s.log.Infof("Loaded %d metadata lists and %d audio lists", len(meta), len(aud))
	return s.Consolidate(meta, aud), nil
}

func readTable(path string, read func(io.Reader) ([]models.RankedMatchList, error)) ([]models.RankedMatchList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// Run executes the full batch: load, attach vectors, rank both ways, consolidate.
func (s *matchService) Run(ctx context.Context, entitiesPath string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	start := time.Now()
	s.log.Infof("Run %s started", res.RunID)

	entities, err := s.LoadEntities(entitiesPath)
	if err != nil {
		return nil, err
	}
	res.Entities = entities

	n, err := s.AttachFeatures(entities)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Attached audio features to %d of %d entities", n, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Metadata, err = s.RankMetadata(gctx, entities)
		return err
	})
	g.Go(func() error {
		var err error
		res.Audio, err = s.RankAudio(gctx, entities)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Final = s.Consolidate(res.Metadata, res.Audio)
	s.log.Infof("Run %s ranked %d entities in %s", res.RunID, len(entities), time.Since(start).Round(time.Millisecond))
	return res, nil
}

// clipPath resolves where an entity's clip should live.
func (s *matchService) clipPath(e *models.EntityRecord) string {
	if ref := e.AudioFeatureRef; ref != "" {
		if filepath.IsAbs(ref) {
			return ref
		}
		return filepath.Join(s.config.ClipsDir, ref)
	}
	return filepath.Join(s.config.ClipsDir, e.ID+"_clip.wav")
}

// ExtractFeatures analyses each entity's clip in parallel and stores the vectors under
// one batch id. Entities without a clip are skipped; unreadable clips are logged.
func (s *matchService) ExtractFeatures(ctx context.Context, entities []models.EntityRecord) (*ExtractReport, error) {
	report := &ExtractReport{BatchID: uuid.NewString()}
	pipe := audio.NewPipeline(s.config.Clip, s.config.Normalize)

	results := make([]*FeatureRecord, len(entities))
	failed := make([]bool, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range entities {
		e := &entities[i]
		path := s.clipPath(e)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				report.Missing++
				continue
			}
			s.log.Warnf("Skipping %s (%s): %v", e.ID, e.Name(), err)
			failed[i] = true
			continue
		}
		g.Go(func() error {
			vec, err := pipe.Process(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warnf("Skipping %s (%s): %v", e.ID, e.Name(), err)
				failed[i] = true
				return nil
			}
			results[i] = &FeatureRecord{UserID: e.ID, ClipPath: path, Vector: vec}
			s.log.Debugf("Extracted %d features for %s", len(vec), e.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]FeatureRecord, 0, len(entities))
	for i, r := range results {
		if r != nil {
			records = append(records, *r)
		}
		if failed[i] {
			report.Failed++
		}
	}
	if err := s.storage.SaveFeatures(report.BatchID, records); err != nil {
		return nil, fmt.Errorf("saving feature vectors: %w", err)
	}
	report.Extracted = len(records)

	s.log.Infof("Batch %s: extracted %d, missing %d, failed %d",
		report.BatchID, report.Extracted, report.Missing, report.Failed)
	return report, nil
}

func (s *matchService) ListFeatures() ([]models.FeatureInfo, error) {
	return s.storage.ListFeatures()
}

func (s *matchService) DeleteFeatures(userID string) error {
	if err := s.storage.DeleteFeatures(userID); err != nil {
		return err
	}
	s.log.Infof("Deleted feature vector of %s", userID)
	return nil
}

func (s *matchService) Close() error {
	return s.storage.Close()
}
