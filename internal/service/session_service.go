package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrChartNotFound   = errors.New("chart not found")
)

// SessionService owns the per-user workspace: dataset, chart list and chat
// log, persisted as one JSON document under session:<id>.
type SessionService interface {
	Load(ctx context.Context, dataset *model.Dataset) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Clear(ctx context.Context, id string) error
	// Update runs fn on the stored session under the session's lock and
	// saves the result when fn returns nil.
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	SetAPIKey(ctx context.Context, id, apiKey string) error

	Charts(ctx context.Context, id string) ([]model.ChartSpec, error)
	AddChart(ctx context.Context, id string, spec model.ChartSpec) (model.ChartSpec, error)
	UpdateChart(ctx context.Context, id, chartID string, patch model.ChartPatch) (model.ChartSpec, error)
	RemoveChart(ctx context.Context, id, chartID string) error
	ChartData(ctx context.Context, id, chartID string) (analysis.ChartData, error)

	Columns(ctx context.Context, id string) (analysis.Schema, error)
	ColumnStats(ctx context.Context, id, column string) (analysis.Stats, []model.Value, error)
	Correlation(ctx context.Context, id, colA, colB string) (float64, error)
	Messages(ctx context.Context, id string) ([]model.Message, error)
}

type sessionService struct {
	kv    store.KV
	ttl   store.TTLPolicy
	locks sync.Map // session id -> *sync.Mutex
}

func NewSessionService(kv store.KV, ttl store.TTLPolicy) SessionService {
	return &sessionService{kv: kv, ttl: ttl}
}

func sessionKey(id string) string {
	return store.PrefixSession + id
}

func (s *sessionService) lock(id string) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *sessionService) save(ctx context.Context, session *model.Session) error {
	key := sessionKey(session.ID)
	if err := store.PutJSON(ctx, s.kv, key, session, s.ttl.For(key)); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to save session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *sessionService) Load(ctx context.Context, dataset *model.Dataset) (*model.Session, error) {
	session := model.NewSession(dataset)
	session.Charts = analysis.RecommendCharts(dataset)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", session.ID).
		Str("dataset", dataset.Name).
		Int("rows", dataset.RowCount()).
		Int("columns", len(dataset.Columns)).
		Int("charts", len(session.Charts)).
		Msg("Dataset loaded into new session")
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := store.GetJSON(ctx, s.kv, sessionKey(id), &session); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (s *sessionService) Clear(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.locks.Delete(id)
	log.Info().Str("session_id", id).Msg("Session cleared")
	return nil
}

func (s *sessionService) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.Touch()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) SetAPIKey(ctx context.Context, id, apiKey string) error {
	_, err := s.Update(ctx, id, func(session *model.Session) error {
		session.APIKey = apiKey
		return nil
	})
	return err
}

func (s *sessionService) Charts(ctx context.Context, id string) ([]model.ChartSpec, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Charts, nil
}

func (s *sessionService) AddChart(ctx context.Context, id string, spec model.ChartSpec) (model.ChartSpec, error) {
	_, err := s.Update(ctx, id, func(session *model.Session) error {
		if err := spec.Validate(session.Dataset.Columns); err != nil {
			return err
		}
		if spec.ID == "" || session.ChartIndex(spec.ID) >= 0 {
			spec.ID = model.NewChartID(spec.Type)
		}
		session.Charts = append(session.Charts, spec)
		return nil
	})
	if err != nil {
		return model.ChartSpec{}, err
	}
	return spec, nil
}

func (s *sessionService) UpdateChart(ctx context.Context, id, chartID string, patch model.ChartPatch) (model.ChartSpec, error) {
	var updated model.ChartSpec
	_, err := s.Update(ctx, id, func(session *model.Session) error {
		i := session.ChartIndex(chartID)
		if i < 0 {
			return ErrChartNotFound
		}
		next := patch.Apply(session.Charts[i])
		if err := next.Validate(session.Dataset.Columns); err != nil {
			return err
		}
		session.Charts[i] = next
		updated = next
		return nil
	})
	if err != nil {
		return model.ChartSpec{}, err
	}
	return updated, nil
}

func (s *sessionService) RemoveChart(ctx context.Context, id, chartID string) error {
	_, err := s.Update(ctx, id, func(session *model.Session) error {
		i := session.ChartIndex(chartID)
		if i < 0 {
			return ErrChartNotFound
		}
		session.Charts = slices.Delete(session.Charts, i, i+1)
		return nil
	})
	return err
}

func (s *sessionService) ChartData(ctx context.Context, id, chartID string) (analysis.ChartData, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return analysis.ChartData{}, err
	}
	i := session.ChartIndex(chartID)
	if i < 0 {
		return analysis.ChartData{}, ErrChartNotFound
	}
	return analysis.BuildChartData(session.Dataset, session.Charts[i])
}

func (s *sessionService) Columns(ctx context.Context, id string) (analysis.Schema, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return analysis.DetectColumnTypes(session.Dataset.Rows, session.Dataset.Columns), nil
}

func (s *sessionService) ColumnStats(ctx context.Context, id, column string) (analysis.Stats, []model.Value, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return analysis.Stats{}, nil, err
	}
	if !slices.Contains(session.Dataset.Columns, column) {
		return analysis.Stats{}, nil, fmt.Errorf("%w: %q", model.ErrUnknownField, column)
	}
	rows := session.Dataset.Rows
	return analysis.CalculateStats(rows, column), analysis.UniqueValues(rows, column), nil
}

func (s *sessionService) Correlation(ctx context.Context, id, colA, colB string) (float64, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, c := range []string{colA, colB} {
		if !slices.Contains(session.Dataset.Columns, c) {
			return 0, fmt.Errorf("%w: %q", model.ErrUnknownField, c)
		}
	}
	return analysis.FindCorrelation(session.Dataset.Rows, colA, colB), nil
}

func (s *sessionService) Messages(ctx context.Context, id string) ([]model.Message, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}
