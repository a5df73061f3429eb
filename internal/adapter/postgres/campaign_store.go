package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mesa-campaigns/internal/core/domain"
	"mesa-campaigns/internal/core/port"
)

const campaignColumns = `
            id,
            reference,
            name,
            type,
            placement,
            priority,
            status,
            start_date,
            end_date,
            timezone,
            is_active,
            is_scheduled,
            is_queued,
            queue_position,
            queue_priority,
            conflict_resolution,
            is_recurring,
            recurrence,
            next_occurrence,
            current_occurrences,
            last_occurrence,
            targeting,
            impressions,
            clicks,
            conversions,
            cta_clicks,
            version,
            created_at,
            updated_at`

// CampaignStore implements port.CampaignStore using pgxpool for PostgreSQL.
type CampaignStore struct {
	pool *pgxpool.Pool
}

// NewCampaignStore returns a new store instance.
func NewCampaignStore(pool *pgxpool.Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

// Create inserts c and fills in the generated id, reference, version and
// timestamps.
func (s *CampaignStore) Create(ctx context.Context, c *domain.Campaign) error {
	if c.Reference == "" {
		c.Reference = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}
	targeting, err := json.Marshal(c.Targeting)
	if err != nil {
		return fmt.Errorf("encode targeting: %w", err)
	}
	recurrence, err := encodeRecurrence(c.Schedule.Recurrence)
	if err != nil {
		return err
	}
	sc := c.Schedule
	err = s.pool.QueryRow(ctx, `
        INSERT INTO campaigns (
            reference, name, type, placement, priority, status,
            start_date, end_date, timezone, is_active, is_scheduled, is_queued,
            queue_position, queue_priority, conflict_resolution, is_recurring,
            recurrence, next_occurrence, current_occurrences, last_occurrence,
            targeting, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,
                COALESCE($22, now()), now())
        RETURNING id, version, created_at, updated_at`,
		c.Reference, c.Name, c.Type, c.Placement, c.Priority, c.Status,
		nullTime(sc.StartDate), sc.EndDate, sc.Timezone, sc.IsActive, sc.IsScheduled, sc.IsQueued,
		sc.QueuePosition, sc.QueuePriority, sc.ConflictResolution, sc.IsRecurring,
		recurrence, sc.NextOccurrence, sc.CurrentOccurrences, sc.LastOccurrence,
		targeting, nullTime(c.CreatedAt),
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	return domain.StoreFailure("create campaign", err)
}

// FindByID returns the campaign or nil when it does not exist.
func (s *CampaignStore) FindByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx, `SELECT`+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("find campaign", err)
	}
	return &c, nil
}

// FindByPlacementAndActiveWindow returns active campaigns at placement whose
// current window contains asOf. Recurring windows are resolved in Go.
func (s *CampaignStore) FindByPlacementAndActiveWindow(ctx context.Context, placement domain.Placement, asOf time.Time) ([]domain.Campaign, error) {
	campaigns, err := s.query(ctx, "find active window",
		`WHERE placement = $1 AND is_active ORDER BY id`, placement)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(campaigns, func(c domain.Campaign) bool {
		return !c.Schedule.Window().Contains(asOf)
	}), nil
}

func (s *CampaignStore) FindActive(ctx context.Context, f port.ActiveFilter) ([]domain.Campaign, error) {
	where := []string{"is_active"}
	var args []any
	if f.Placement != "" {
		args = append(args, f.Placement)
		where = append(where, fmt.Sprintf("placement = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	campaigns, err := s.query(ctx, "find active",
		"WHERE "+strings.Join(where, " AND ")+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	if f.AsOf.IsZero() {
		return campaigns, nil
	}
	return slices.DeleteFunc(campaigns, func(c domain.Campaign) bool {
		return !c.Schedule.Window().Contains(f.AsOf)
	}), nil
}

func (s *CampaignStore) FindByPlacement(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error) {
	return s.query(ctx, "find by placement",
		`WHERE placement = $1 AND (is_active OR is_scheduled OR is_queued) ORDER BY id`, placement)
}

func (s *CampaignStore) FindQueued(ctx context.Context, placement domain.Placement) ([]domain.Campaign, error) {
	return s.query(ctx, "find queued",
		`WHERE placement = $1 AND is_queued ORDER BY queue_position, id`, placement)
}

func (s *CampaignStore) FindScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Campaign, error) {
	return s.query(ctx, "find scheduled",
		`WHERE is_scheduled AND start_date BETWEEN $1 AND $2 ORDER BY start_date, id`, from, to)
}

func (s *CampaignStore) FindDueForActivation(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	return s.query(ctx, "find due", `
        WHERE NOT is_active AND NOT is_queued
          AND ((is_scheduled AND start_date <= $1 AND (end_date IS NULL OR end_date > $1))
            OR (is_recurring AND next_occurrence <= $1))
        ORDER BY id`, now)
}

// UpdateFields applies the non-nil fields of upd in one statement and bumps
// the version.
func (s *CampaignStore) UpdateFields(ctx context.Context, id int64, upd domain.CampaignUpdate) error {
	var (
		set  []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Priority != nil {
		add("priority", *upd.Priority)
	}
	if sc := upd.Schedule; sc != nil {
		recurrence, err := encodeRecurrence(sc.Recurrence)
		if err != nil {
			return err
		}
		add("start_date", nullTime(sc.StartDate))
		add("end_date", sc.EndDate)
		add("timezone", sc.Timezone)
		add("is_active", sc.IsActive)
		add("is_scheduled", sc.IsScheduled)
		add("is_queued", sc.IsQueued)
		add("queue_position", sc.QueuePosition)
		add("queue_priority", sc.QueuePriority)
		add("conflict_resolution", sc.ConflictResolution)
		add("is_recurring", sc.IsRecurring)
		add("recurrence", recurrence)
		add("next_occurrence", sc.NextOccurrence)
		add("current_occurrences", sc.CurrentOccurrences)
		add("last_occurrence", sc.LastOccurrence)
	}
	if upd.Targeting != nil {
		targeting, err := json.Marshal(upd.Targeting)
		if err != nil {
			return fmt.Errorf("encode targeting: %w", err)
		}
		add("targeting", targeting)
	}
	set = append(set, "version = version + 1", "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.StoreFailure("update campaign", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.CampaignNotFound(id)
	}
	return nil
}

// ShiftQueuePositions adds delta to the positions in (after, upTo] at
// placement. upTo <= 0 leaves the range unbounded.
func (s *CampaignStore) ShiftQueuePositions(ctx context.Context, placement domain.Placement, after, upTo, delta int) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE campaigns
        SET queue_position = queue_position + $4, version = version + 1, updated_at = now()
        WHERE placement = $1 AND is_queued
          AND queue_position > $2 AND ($3 <= 0 OR queue_position <= $3)`,
		placement, after, upTo, delta)
	return domain.StoreFailure("shift queue", err)
}

// SetQueuePositions writes all positions in one transaction.
func (s *CampaignStore) SetQueuePositions(ctx context.Context, placement domain.Placement, positions map[int64]int) error {
	if len(positions) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM campaigns WHERE id = ANY($1) AND placement = $2 FOR UPDATE`, ids, placement)
		if err != nil {
			return err
		}
		found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}
		for _, id := range ids {
			if !slices.Contains(found, id) {
				return domain.CampaignNotFound(id)
			}
		}

		batch := &pgx.Batch{}
		for _, id := range ids {
			batch.Queue(`
                UPDATE campaigns
                SET queue_position = $2, version = version + 1, updated_at = now()
                WHERE id = $1 AND queue_position IS DISTINCT FROM $2`, id, positions[id])
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return domain.StoreFailure("set queue positions", err)
}

// IncrementAnalytics adds d to the counters without touching the version.
func (s *CampaignStore) IncrementAnalytics(ctx context.Context, id int64, d domain.AnalyticsDelta) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE campaigns
        SET impressions = impressions + $2,
            clicks = clicks + $3,
            conversions = conversions + $4,
            cta_clicks = CASE WHEN $5::text = '' THEN cta_clicks
                ELSE jsonb_set(cta_clicks, ARRAY[$5::text],
                    to_jsonb(COALESCE((cta_clicks->>$5::text)::bigint, 0) + $3::bigint))
                END
        WHERE id = $1`,
		id, d.Impressions, d.Clicks, d.Conversions, d.CTA)
	if err != nil {
		return domain.StoreFailure("increment analytics", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.CampaignNotFound(id)
	}
	return nil
}

// Delete removes an inactive campaign.
func (s *CampaignStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1 AND NOT is_active`, id)
	if err != nil {
		return domain.StoreFailure("delete campaign", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var active bool
	err = s.pool.QueryRow(ctx, `SELECT is_active FROM campaigns WHERE id = $1`, id).Scan(&active)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.CampaignNotFound(id)
	case err != nil:
		return domain.StoreFailure("delete campaign", err)
	default:
		return domain.ErrCampaignActive
	}
}

func (s *CampaignStore) query(ctx context.Context, op, clause string, args ...any) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+campaignColumns+` FROM campaigns `+clause, args...)
	if err != nil {
		return nil, domain.StoreFailure(op, err)
	}
	campaigns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		return scanCampaign(row)
	})
	if err != nil {
		return nil, domain.StoreFailure(op, err)
	}
	return campaigns, nil
}

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var (
		c                     domain.Campaign
		start                 *time.Time
		recurrence, targeting []byte
		ctaClicks             []byte
	)
	sc := &c.Schedule
	err := row.Scan(
		&c.ID,
		&c.Reference,
		&c.Name,
		&c.Type,
		&c.Placement,
		&c.Priority,
		&c.Status,
		&start,
		&sc.EndDate,
		&sc.Timezone,
		&sc.IsActive,
		&sc.IsScheduled,
		&sc.IsQueued,
		&sc.QueuePosition,
		&sc.QueuePriority,
		&sc.ConflictResolution,
		&sc.IsRecurring,
		&recurrence,
		&sc.NextOccurrence,
		&sc.CurrentOccurrences,
		&sc.LastOccurrence,
		&targeting,
		&c.Analytics.Impressions,
		&c.Analytics.Clicks,
		&c.Analytics.Conversions,
		&ctaClicks,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if start != nil {
		sc.StartDate = *start
	}
	if len(recurrence) > 0 {
		sc.Recurrence = new(domain.RecurrenceDetails)
		if err = json.Unmarshal(recurrence, sc.Recurrence); err != nil {
			return c, fmt.Errorf("decode recurrence of campaign %d: %w", c.ID, err)
		}
	}
	if len(targeting) > 0 {
		if err = json.Unmarshal(targeting, &c.Targeting); err != nil {
			return c, fmt.Errorf("decode targeting of campaign %d: %w", c.ID, err)
		}
	}
	if len(ctaClicks) > 0 {
		if err = json.Unmarshal(ctaClicks, &c.Analytics.CTAClicks); err != nil {
			return c, fmt.Errorf("decode cta clicks of campaign %d: %w", c.ID, err)
		}
		if len(c.Analytics.CTAClicks) == 0 {
			c.Analytics.CTAClicks = nil
		}
	}
	return c, nil
}

func encodeRecurrence(r *domain.RecurrenceDetails) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode recurrence: %w", err)
	}
	return b, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
