// Package services – ChoiceService
//
// ChoiceService records the movie a group finally picked and serves the
// group's history back. Writes for one group are serialized with a keyed
// mutex around a single transaction, so two concurrent choices of the same
// group never lose an update of the preference aggregate. An optional
// idempotency key makes a retried write return the stored choice instead of
// counting a second session.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/history"
	"github.com/tbourn/go-movie-matcher/internal/repo"
	"github.com/tbourn/go-movie-matcher/internal/taste"
)

const choiceTracer = "services/ChoiceService"

// ChoiceService persists group choices.
type ChoiceService struct {
	DB      *gorm.DB
	Locks   *history.Locks
	IdemTTL time.Duration
	Now     func() time.Time
}

// NewChoiceService returns a service with a 24h idempotency window.
func NewChoiceService(db *gorm.DB) *ChoiceService {
	return &ChoiceService{DB: db, Locks: history.NewLocks(), IdemTTL: 24 * time.Hour, Now: time.Now}
}

// ChoiceInput is one finalized pick. Options are the recommendations that
// were on the table, best first.
type ChoiceInput struct {
	Members []string
	Options []*domain.GroupMatchedMovie
	Chosen  *domain.GroupMatchedMovie
}

// Record stores the choice and folds it into the group's preferences. When
// idemKey was already used for this group within the TTL, the stored choice
// is returned with replay set and nothing is written.
func (s *ChoiceService) Record(ctx context.Context, in ChoiceInput, idemKey string) (row *domain.ChoiceRow, replay bool, err error) {
	members := domain.NormalizeMembers(in.Members)
	if len(members) == 0 {
		return nil, false, ErrNoMembers
	}
	if in.Chosen == nil || strings.TrimSpace(in.Chosen.Title) == "" {
		return nil, false, ErrEmptyChoice
	}
	if len(in.Options) > 0 && !offered(in.Options, in.Chosen) {
		return nil, false, ErrInvalidChoice
	}
	groupID := domain.GroupID(members)
	idemKey = strings.TrimSpace(idemKey)

	ctx, span := otel.Tracer(choiceTracer).Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("chosen.title", in.Chosen.Title),
			attribute.Bool("idempotent", idemKey != ""),
		),
	)
	defer span.End()

	unlock := s.Locks.Lock(groupID)
	defer unlock()

	now := s.now()
	if idemKey != "" {
		prev, err := repo.GetIdempotency(ctx, s.DB, groupID, idemKey, now)
		switch {
		case err == nil:
			row, err := repo.GetChoice(ctx, s.DB, prev.ChoiceID)
			if errors.Is(err, repo.ErrNotFound) {
				return nil, false, ErrChoiceNotFound
			}
			if err != nil {
				return nil, false, err
			}
			span.SetAttributes(attribute.Bool("replay", true))
			return row, true, nil
		case !errors.Is(err, repo.ErrNotFound):
			return nil, false, err
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := repo.LoadHistory(ctx, tx, groupID)
		switch {
		case errors.Is(err, repo.ErrCorruptHistory):
			ctxLogger(ctx).Warn().Err(err).Str("group_id", groupID).Msg("group history unreadable, starting fresh")
			h = domain.NewGroupHistory(groupID)
		case err != nil:
			return err
		}
		rec := history.NewChoiceRecord(members, in.Options, in.Chosen, now)
		h.Record(rec)

		row, err = repo.SaveChoice(ctx, tx, groupID, rec, h.Preferences)
		if err != nil {
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, groupID, idemKey, row.ID, s.IdemTTL); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	ctxLogger(ctx).Info().Str("group_id", groupID).Str("title", in.Chosen.Title).Int("seq", row.Seq).Msg("choice recorded")
	return row, false, nil
}

// History returns a page of groupID's choices (newest first), the total
// count and the current preference aggregate.
func (s *ChoiceService) History(ctx context.Context, groupID string, page, pageSize int) ([]domain.ChoiceRow, int64, domain.Preferences, error) {
	groupID = strings.ToLower(strings.TrimSpace(groupID))
	ctx, span := otel.Tracer(choiceTracer).Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	prefs := domain.NewPreferences()
	h, err := repo.LoadHistory(ctx, s.DB, groupID)
	switch {
	case errors.Is(err, repo.ErrCorruptHistory):
		ctxLogger(ctx).Warn().Err(err).Str("group_id", groupID).Msg("group preferences unreadable")
	case err != nil:
		return nil, 0, prefs, err
	default:
		prefs = h.Preferences
	}

	total, err := repo.CountChoices(ctx, s.DB, groupID)
	if err != nil {
		return nil, 0, prefs, err
	}
	if total == 0 {
		return []domain.ChoiceRow{}, 0, prefs, nil
	}
	rows, err := repo.ListChoicesPage(ctx, s.DB, groupID, (page-1)*pageSize, pageSize)
	return rows, total, prefs, err
}

// Summary describes what the group has learned so far.
func (s *ChoiceService) Summary(ctx context.Context, groupID string) (history.Summary, error) {
	groupID = strings.ToLower(strings.TrimSpace(groupID))
	ctx, span := otel.Tracer(choiceTracer).Start(ctx, "Summary",
		trace.WithAttributes(attribute.String("group.id", groupID)))
	defer span.End()

	h, err := repo.LoadHistory(ctx, s.DB, groupID)
	switch {
	case errors.Is(err, repo.ErrCorruptHistory):
		ctxLogger(ctx).Warn().Err(err).Str("group_id", groupID).Msg("group history unreadable, summarizing fresh")
		h = domain.NewGroupHistory(groupID)
	case err != nil:
		return history.Summary{}, err
	}
	return history.Summarize(h), nil
}

// PurgeExpired removes idempotency records past their TTL.
func (s *ChoiceService) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredIdempotency(ctx, s.DB, s.now())
}

func (s *ChoiceService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func offered(options []*domain.GroupMatchedMovie, chosen *domain.GroupMatchedMovie) bool {
	want := taste.KeyOf(chosen.Title, chosen.Year)
	for _, o := range options {
		if o != nil && taste.KeyOf(o.Title, o.Year) == want {
			return true
		}
	}
	return false
}
