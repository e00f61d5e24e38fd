// Package assessment drives the adaptive question loop of a session: it
// records responses, re-evaluates pathways, selects the next batch, and
// scores the session on completion.
package assessment

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/neurlyn/internal/model"
	"github.com/verte-zerg/neurlyn/internal/pathway"
	"github.com/verte-zerg/neurlyn/internal/questionbank"
	"github.com/verte-zerg/neurlyn/internal/scoring"
	"github.com/verte-zerg/neurlyn/internal/selector"
)

const (
	maxTierLen     = 32
	maxConcerns    = 16
	maxDemographic = 128
)

// Service is the adaptive session controller.
type Service struct {
	store    SessionStore
	bank     questionbank.Source
	selector *selector.Selector
	engine   *pathway.Engine
	policy   model.Policy
	logger   *zap.Logger
	locks    *keyedMutex

	now   func() time.Time
	newID func() string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the controller. The policy must already be validated.
func NewService(store SessionStore, bank questionbank.Source, policy model.Policy, opts ...Option) *Service {
	s := &Service{
		store:    store,
		bank:     bank,
		selector: selector.New(bank, policy),
		engine:   pathway.New(policy),
		policy:   policy,
		logger:   zap.NewNop(),
		locks:    newKeyedMutex(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the policy the service was built with.
func (s *Service) Policy() model.Policy {
	return s.policy
}

// StartInput carries the options of a new assessment.
type StartInput struct {
	Tier         string
	Concerns     []string
	Demographics map[string]string
}

// StartOutput is returned by Start.
type StartOutput struct {
	SessionID string
	Tier      model.Tier
	Progress  model.Progress
	Batch     []model.Question
	Activated []model.PathwayID
}

// Start creates a session and returns its first batch.
func (s *Service) Start(ctx context.Context, in StartInput) (StartOutput, error) {
	if err := validateStart(in); err != nil {
		return StartOutput{}, err
	}
	tier, budget := s.policy.ResolveTier(model.Tier(strings.ToLower(strings.TrimSpace(in.Tier))))
	now := s.now().UTC()
	sess := &model.Session{
		ID:             s.newID(),
		Tier:           tier,
		Budget:         budget,
		Concerns:       normalizeConcerns(in.Concerns),
		Demographics:   in.Demographics,
		PathwayCounts:  map[model.PathwayID]int{},
		Status:         model.StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if s.policy.Shuffle {
		sess.Seed = seedFor(sess.ID)
	}

	state := pathway.State{Counts: sess.PathwayCounts}
	s.engine.Seed(&state, sess.Concerns)
	sess.PathwayCounts, sess.Activated = state.Counts, state.Active

	batch := s.selector.Next(sess)
	sess.CurrentBatch = questionIDs(batch)

	if err := withRetry(ctx, s.policy.StoreRetries, s.policy.StoreBackoff, func() error {
		return s.store.Create(ctx, sess)
	}); err != nil {
		s.logger.Error("failed to create session", zap.String("session_id", sess.ID), zap.Error(err))
		return StartOutput{}, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("tier", string(tier)),
		zap.Int("budget", budget),
		zap.Int("batch", len(batch)))

	return StartOutput{
		SessionID: sess.ID,
		Tier:      tier,
		Progress:  sess.Progress(),
		Batch:     batch,
		Activated: sess.Activated,
	}, nil
}

// SubmitInput is one answer for a pending question.
type SubmitInput struct {
	SessionID  string
	QuestionID string
	Value      *float64
	Choice     string
	LatencyMs  int64
	Behavior   *model.Behavior
}

// SubmitOutput reports the state after a submission.
type SubmitOutput struct {
	Progress       model.Progress
	Batch          []model.Question
	Complete       bool
	Activated      []model.PathwayID
	NewlyActivated []model.PathwayID
	Duplicate      bool
}

// Submit records a response for the current batch. Re-submitting an
// already recorded answer with the same value is a no-op.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	if strings.TrimSpace(in.QuestionID) == "" {
		return SubmitOutput{}, fmt.Errorf("%w: questionId is required", ErrValidation)
	}
	if in.Value == nil && strings.TrimSpace(in.Choice) == "" {
		return SubmitOutput{}, fmt.Errorf("%w: value is required", ErrValidation)
	}
	if in.LatencyMs < 0 {
		return SubmitOutput{}, fmt.Errorf("%w: latencyMs must be >= 0", ErrValidation)
	}

	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	sess, err := s.load(ctx, in.SessionID)
	if err != nil {
		return SubmitOutput{}, err
	}
	if sess.Status == model.StatusCompleted {
		return SubmitOutput{}, ErrSessionClosed
	}

	q, ok := s.bank.Lookup(in.QuestionID)
	if !ok {
		return SubmitOutput{}, fmt.Errorf("%w: unknown question %q", ErrInvalidResponse, in.QuestionID)
	}
	value, choice, err := resolveValue(q, in)
	if err != nil {
		return SubmitOutput{}, err
	}

	if prev, answered := sess.Answered(q.ID); answered {
		if prev.Value != value {
			return SubmitOutput{}, fmt.Errorf("%w: question %q already answered with a different value", ErrValidation, q.ID)
		}
		out := s.submitOutput(sess, nil)
		out.Duplicate = true
		return out, nil
	}
	if !contains(sess.CurrentBatch, q.ID) {
		return SubmitOutput{}, fmt.Errorf("%w: question %q is not in the current batch", ErrInvalidResponse, q.ID)
	}

	now := s.now().UTC()
	resp := model.Response{
		QuestionID: q.ID,
		Value:      value,
		Choice:     choice,
		LatencyMs:  in.LatencyMs,
		Category:   q.Category,
		Trait:      q.Trait,
		Tags:       q.Tags,
		Pathway:    q.Pathway,
		Reverse:    q.Reverse,
		ScaleMin:   q.ScaleMin,
		ScaleMax:   q.ScaleMax,
		Behavior:   in.Behavior,
		RecordedAt: now,
	}
	sess.Responses = append(sess.Responses, resp)
	sess.CurrentBatch = without(sess.CurrentBatch, q.ID)

	state := pathway.State{Counts: sess.PathwayCounts, Active: sess.Activated}
	newly := s.engine.Observe(&state, resp)
	sess.PathwayCounts, sess.Activated = state.Counts, state.Active

	if len(sess.CurrentBatch) == 0 {
		sess.CurrentBatch = questionIDs(s.selector.Next(sess))
	}
	sess.LastActivityAt = now

	if err := withRetry(ctx, s.policy.StoreRetries, s.policy.StoreBackoff, func() error {
		return s.store.Update(ctx, sess)
	}); err != nil {
		s.logger.Error("failed to record response", zap.String("session_id", sess.ID), zap.Error(err))
		return SubmitOutput{}, fmt.Errorf("failed to record response: %w", err)
	}
	for _, id := range newly {
		s.logger.Info("pathway activated",
			zap.String("session_id", sess.ID),
			zap.String("pathway", string(id)),
			zap.Int("answered", len(sess.Responses)))
	}
	return s.submitOutput(sess, newly), nil
}

// NextBatch selects the next batch for sess and advances its cursors.
func (s *Service) NextBatch(sess *model.Session) []model.Question {
	return s.selector.Next(sess)
}

// Complete scores the session and closes it.
func (s *Service) Complete(ctx context.Context, id string) (model.Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return model.Result{}, err
	}
	if sess.Status == model.StatusCompleted {
		return model.Result{}, ErrSessionClosed
	}

	result := s.score(sess)
	now := s.now().UTC()
	sess.Result = &result
	sess.Status = model.StatusCompleted
	sess.CompletedAt = &now
	sess.LastActivityAt = now
	sess.CurrentBatch = nil

	deleteAfter := now.Add(s.policy.Retention)
	if err := withRetry(ctx, s.policy.StoreRetries, s.policy.StoreBackoff, func() error {
		return s.store.MarkComplete(ctx, sess, deleteAfter)
	}); err != nil {
		s.logger.Error("failed to store result", zap.String("session_id", id), zap.Error(err))
		return model.Result{}, fmt.Errorf("failed to store result: %w", err)
	}
	s.logger.Info("session completed",
		zap.String("session_id", id),
		zap.Int("answered", len(sess.Responses)),
		zap.Float64("match_confidence", result.MatchConfidence),
		zap.String("data_quality", string(result.Quality.DataQuality)))
	return result, nil
}

// ResumeOutput describes where a session stands.
type ResumeOutput struct {
	SessionID  string
	Tier       model.Tier
	Progress   model.Progress
	Activated  []model.PathwayID
	IsComplete bool
	Batch      []model.Question
	Result     *model.Result
}

// Resume returns the state of a session so a client can continue it.
func (s *Service) Resume(ctx context.Context, id string) (ResumeOutput, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return ResumeOutput{}, err
	}
	return ResumeOutput{
		SessionID:  sess.ID,
		Tier:       sess.Tier,
		Progress:   sess.Progress(),
		Activated:  sess.Activated,
		IsComplete: sess.Status == model.StatusCompleted,
		Batch:      s.questions(sess.CurrentBatch),
		Result:     sess.Result,
	}, nil
}

// Snapshot is the hand-off to the report compiler.
type Snapshot struct {
	SessionID string
	Tier      model.Tier
	Responses []model.Response
	Result    model.Result
}

// Snapshot recomputes the result of a session from its stored responses.
// Scores are derived purely from the response log, so the output matches
// what Complete returned for the same responses.
func (s *Service) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	var sess *model.Session
	err := withRetry(ctx, s.policy.StoreRetries, s.policy.StoreBackoff, func() error {
		var gerr error
		sess, gerr = s.store.Get(ctx, id)
		return gerr
	})
	if err != nil {
		return Snapshot{}, err
	}
	if sess == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	replayed := s.engine.Replay(sess.Concerns, sess.Responses)
	sess.Activated = replayed.Active
	return Snapshot{
		SessionID: sess.ID,
		Tier:      sess.Tier,
		Responses: sess.Responses,
		Result:    s.score(sess),
	}, nil
}

func (s *Service) score(sess *model.Session) model.Result {
	scores := scoring.ScoreTraits(sess.Responses)
	quality := scoring.QualityMetrics(sess.Responses, sess.Budget, s.policy)
	activated := append([]model.PathwayID(nil), sess.Activated...)
	return model.Result{
		Scores:            scores,
		ActivatedPathways: activated,
		MatchConfidence:   scoring.MatchConfidence(len(sess.Responses), quality),
		Quality:           quality,
		Summary:           Summarize(scores, activated, quality),
	}
}

// load fetches an active or completed session. Sessions idle past the TTL
// are reported as not found.
func (s *Service) load(ctx context.Context, id string) (*model.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrSessionNotFound
	}
	var sess *model.Session
	err := withRetry(ctx, s.policy.StoreRetries, s.policy.StoreBackoff, func() error {
		var gerr error
		sess, gerr = s.store.Get(ctx, id)
		return gerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != model.StatusCompleted && s.policy.SessionTTL > 0 &&
		s.now().Sub(sess.LastActivityAt) > s.policy.SessionTTL {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) submitOutput(sess *model.Session, newly []model.PathwayID) SubmitOutput {
	return SubmitOutput{
		Progress:       sess.Progress(),
		Batch:          s.questions(sess.CurrentBatch),
		Complete:       len(sess.CurrentBatch) == 0,
		Activated:      sess.Activated,
		NewlyActivated: newly,
	}
}

func (s *Service) questions(ids []string) []model.Question {
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.bank.Lookup(id); ok {
			out = append(out, q)
		}
	}
	return out
}

func resolveValue(q model.Question, in SubmitInput) (float64, string, error) {
	if q.Type == model.ResponseChoice {
		if label := strings.TrimSpace(in.Choice); label != "" {
			for _, c := range q.Choices {
				if strings.EqualFold(c.Label, label) {
					return c.Value, c.Label, nil
				}
			}
			return 0, "", fmt.Errorf("%w: %q is not a choice of question %q", ErrValidation, label, q.ID)
		}
		for _, c := range q.Choices {
			if c.Value == *in.Value {
				return c.Value, c.Label, nil
			}
		}
		return 0, "", fmt.Errorf("%w: %v is not a choice value of question %q", ErrValidation, *in.Value, q.ID)
	}
	if in.Value == nil {
		return 0, "", fmt.Errorf("%w: value is required for %s questions", ErrValidation, q.Type)
	}
	v := *in.Value
	if math.IsNaN(v) || math.IsInf(v, 0) || v < q.ScaleMin || v > q.ScaleMax {
		return 0, "", fmt.Errorf("%w: value %v outside scale [%v, %v]", ErrValidation, v, q.ScaleMin, q.ScaleMax)
	}
	if q.Type == model.ResponseLikert && v != math.Trunc(v) {
		return 0, "", fmt.Errorf("%w: likert value must be a whole number", ErrValidation)
	}
	return v, "", nil
}

func validateStart(in StartInput) error {
	if len(in.Tier) > maxTierLen {
		return fmt.Errorf("%w: tier is too long", ErrValidation)
	}
	for _, r := range in.Tier {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_' || r == ' ') {
			return fmt.Errorf("%w: tier contains invalid characters", ErrValidation)
		}
	}
	if len(in.Concerns) > maxConcerns {
		return fmt.Errorf("%w: at most %d concerns are allowed", ErrValidation, maxConcerns)
	}
	for k, v := range in.Demographics {
		if len(k) > maxDemographic || len(v) > maxDemographic {
			return fmt.Errorf("%w: demographic %q is too long", ErrValidation, k)
		}
	}
	return nil
}

func normalizeConcerns(concerns []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range concerns {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func seedFor(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	seed := int64(h.Sum64() >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

func questionIDs(qs []model.Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
