// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"time"

	"outreach_server/core/domain"
	"outreach_server/core/port/out"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

const profilesTable = "profiles"

var profileColumns = []string{"id", "linkedin_url", "raw_data", "created_at"}

const returningProfile = "RETURNING id, linkedin_url, raw_data, created_at"

var (
	_ out.ProfileRepository = (*ProfileAdapter)(nil)
	_ out.Pinger            = (*ProfileAdapter)(nil)
)

// ProfileAdapter implements out.ProfileRepository on PostgreSQL.
type ProfileAdapter struct {
	db  *sqlx.DB
	psq sq.StatementBuilderType
}

// NewProfileAdapter creates a new ProfileAdapter.
func NewProfileAdapter(db *sqlx.DB) *ProfileAdapter {
	return &ProfileAdapter{
		db:  db,
		psq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type profileRow struct {
	ID          string            `db:"id"`
	LinkedInURL string            `db:"linkedin_url"`
	RawData     domain.RawProfile `db:"raw_data"`
	CreatedAt   time.Time         `db:"created_at"`
}

func (r *profileRow) toEntity() *domain.Profile {
	raw := r.RawData
	if raw == nil {
		raw = domain.RawProfile{}
	}
	return &domain.Profile{
		ID:          r.ID,
		LinkedInURL: r.LinkedInURL,
		RawData:     raw,
		CreatedAt:   r.CreatedAt,
	}
}

func (a *ProfileAdapter) FindByURL(ctx context.Context, linkedinURL string) (*domain.Profile, error) {
	return a.findOne(ctx, "get profile by url", sq.Eq{"linkedin_url": linkedinURL})
}

func (a *ProfileAdapter) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return a.findOne(ctx, "get profile by id", sq.Eq{"id": id})
}

func (a *ProfileAdapter) findOne(ctx context.Context, op string, where sq.Eq) (*domain.Profile, error) {
	query, args, err := a.psq.Select(profileColumns...).
		From(profilesTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, classify("build query", err)
	}

	var row profileRow
	if err := a.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, classify(op, err)
	}
	return row.toEntity(), nil
}

// Insert adds a new row. A concurrent insert of the same URL fails with ErrDuplicate.
func (a *ProfileAdapter) Insert(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	query, args, err := a.psq.Insert(profilesTable).
		Columns("linkedin_url", "raw_data").
		Values(linkedinURL, raw).
		Suffix(returningProfile).
		ToSql()
	if err != nil {
		return nil, classify("build query", err)
	}

	var row profileRow
	if err := a.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, classify("insert profile", err)
	}
	return row.toEntity(), nil
}

// UpsertByURL replaces raw_data when the URL already exists, keeping id and created_at.
func (a *ProfileAdapter) UpsertByURL(ctx context.Context, linkedinURL string, raw domain.RawProfile) (*domain.Profile, error) {
	query, args, err := a.psq.Insert(profilesTable).
		Columns("linkedin_url", "raw_data").
		Values(linkedinURL, raw).
		Suffix("ON CONFLICT (linkedin_url) DO UPDATE SET raw_data = EXCLUDED.raw_data " + returningProfile).
		ToSql()
	if err != nil {
		return nil, classify("build query", err)
	}

	var row profileRow
	if err := a.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, classify("upsert profile", err)
	}
	return row.toEntity(), nil
}

// List returns one page ordered newest first plus the unpaged row count.
func (a *ProfileAdapter) List(ctx context.Context, limit, offset int) (*domain.ProfilePage, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	countQuery, _, err := a.psq.Select("COUNT(*)").From(profilesTable).ToSql()
	if err != nil {
		return nil, classify("build query", err)
	}
	var total int
	if err := a.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, classify("count profiles", err)
	}

	page := &domain.ProfilePage{Profiles: []*domain.Profile{}, Total: total}
	if limit == 0 || offset >= total {
		return page, nil
	}

	query, args, err := a.psq.Select(profileColumns...).
		From(profilesTable).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, classify("build query", err)
	}

	var rows []profileRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list profiles", err)
	}
	for i := range rows {
		page.Profiles = append(page.Profiles, rows[i].toEntity())
	}
	return page, nil
}

func (a *ProfileAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}
