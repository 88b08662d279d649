package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	balancegroup "coopmarket/internal/balancegroup/domain"
)

const (
	defaultGroupsTable      = "balance_groups"
	defaultMembershipsTable = "balance_group_memberships"
)

// GroupRepository persists balance groups and memberships.
type GroupRepository struct {
	db               *sql.DB
	groupsTable      string
	membershipsTable string
}

// NewGroupRepository constructs a repository.
func NewGroupRepository(db *sql.DB, opts ...Option) *GroupRepository {
	repo := &GroupRepository{
		db:               db,
		groupsTable:      defaultGroupsTable,
		membershipsTable: defaultMembershipsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*GroupRepository)

// WithGroupsTable overrides the groups table name.
func WithGroupsTable(table string) Option {
	return func(repo *GroupRepository) {
		if table != "" {
			repo.groupsTable = table
		}
	}
}

// WithMembershipsTable overrides the memberships table name.
func WithMembershipsTable(table string) Option {
	return func(repo *GroupRepository) {
		if table != "" {
			repo.membershipsTable = table
		}
	}
}

// FindByID loads a group with its memberships.
func (r *GroupRepository) FindByID(ctx context.Context, groupID string) (*balancegroup.BalanceGroup, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("group repo: nil db")
	}
	if groupID == "" {
		return nil, balancegroup.ErrEmptyGroupID
	}

	query := fmt.Sprintf(`
SELECT id, name, price_ct_per_kwh
FROM %s
WHERE id = $1`, r.groupsTable)

	var group balancegroup.BalanceGroup
	var price string
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&group.ID, &group.Name, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, balancegroup.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	group.PriceCtPerKWh, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}

	membershipQuery := fmt.Sprintf(`
SELECT metering_point, valid_from, valid_to
FROM %s
WHERE group_id = $1
ORDER BY metering_point ASC, valid_from ASC`, r.membershipsTable)

	rows, err := r.db.QueryContext(ctx, membershipQuery, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m balancegroup.Membership
		var validTo sql.NullTime
		if err := rows.Scan(&m.MeteringPoint, &m.ValidFrom, &validTo); err != nil {
			return nil, err
		}
		m.ValidFrom = m.ValidFrom.UTC()
		if validTo.Valid {
			m.ValidTo = validTo.Time.UTC()
		}
		group.Memberships = append(group.Memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &group, nil
}

// Save upserts the group row and replaces its memberships in one transaction.
func (r *GroupRepository) Save(ctx context.Context, group *balancegroup.BalanceGroup) error {
	if r == nil || r.db == nil {
		return errors.New("group repo: nil db")
	}
	if group == nil || group.ID == "" {
		return balancegroup.ErrEmptyGroupID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	upsert := fmt.Sprintf(`
INSERT INTO %s (id, name, price_ct_per_kwh)
VALUES ($1, $2, $3)
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name, price_ct_per_kwh = EXCLUDED.price_ct_per_kwh`, r.groupsTable)
	if _, err := tx.ExecContext(ctx, upsert, group.ID, group.Name, group.PriceCtPerKWh.String()); err != nil {
		_ = tx.Rollback()
		return err
	}

	clear := fmt.Sprintf(`DELETE FROM %s WHERE group_id = $1`, r.membershipsTable)
	if _, err := tx.ExecContext(ctx, clear, group.ID); err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, m := range group.Memberships {
		if err := r.insertMembership(ctx, tx, group.ID, m); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// AddMembership appends one membership after the cross-group overlap check.
func (r *GroupRepository) AddMembership(ctx context.Context, groupID string, membership balancegroup.Membership) error {
	if r == nil || r.db == nil {
		return errors.New("group repo: nil db")
	}
	if groupID == "" {
		return balancegroup.ErrEmptyGroupID
	}
	if membership.MeteringPoint == "" {
		return balancegroup.ErrEmptyMeteringPoint
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.insertMembership(ctx, tx, groupID, membership); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// insertMembership checks the one-active-group invariant inside the
// transaction before writing. A zero ValidTo is stored as NULL (open-ended).
func (r *GroupRepository) insertMembership(ctx context.Context, tx *sql.Tx, groupID string, m balancegroup.Membership) error {
	overlapQuery := fmt.Sprintf(`
SELECT group_id
FROM %s
WHERE metering_point = $1
	AND group_id <> $2
	AND (valid_to IS NULL OR valid_to > $3)
	AND ($4::timestamptz IS NULL OR valid_from < $4)
LIMIT 1`, r.membershipsTable)

	var validTo any
	if !m.ValidTo.IsZero() {
		validTo = m.ValidTo.UTC()
	}
	var otherGroup string
	err := tx.QueryRowContext(ctx, overlapQuery, m.MeteringPoint, groupID, m.ValidFrom.UTC(), validTo).Scan(&otherGroup)
	if err == nil {
		return &balancegroup.MembershipOverlapError{
			MeteringPoint: m.MeteringPoint,
			GroupID:       groupID,
			OtherGroupID:  otherGroup,
		}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	insert := fmt.Sprintf(`
INSERT INTO %s (group_id, metering_point, valid_from, valid_to, created_at)
VALUES ($1, $2, $3, $4, $5)`, r.membershipsTable)
	_, err = tx.ExecContext(ctx, insert, groupID, m.MeteringPoint, m.ValidFrom.UTC(), validTo, time.Now().UTC())
	return err
}

// IsKnown reports whether a metering point has ever been assigned to a
// group. The readings normalizer uses this as the registration check.
func (r *GroupRepository) IsKnown(ctx context.Context, meteringPoint string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("group repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s WHERE metering_point = $1
)`, r.membershipsTable)
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, meteringPoint).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListGroupIDs returns all group ids.
func (r *GroupRepository) ListGroupIDs(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("group repo: nil db")
	}
	query := fmt.Sprintf(`SELECT id FROM %s ORDER BY id ASC`, r.groupsTable)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
