package queue

import (
	"context"
	"fmt"
	"time"
)

// Queue is a handle bound to one named queue's item and lease tables. Handles
// are safe for concurrent use; all methods are single atomic units from the
// caller's perspective.
type Queue struct {
	store *Store
	name  string

	sqlPut         string
	sqlClaimSelect string
	sqlAck         string
	sqlAbandon     string
	sqlExpired     string
	sqlCollect     string
	sqlItemStats   string
	sqlLeaseStats  string
}

func newQueue(store *Store, name string) *Queue {
	items, leases := itemTable(name), leaseTable(name)
	d := store.dialect
	return &Queue{
		store: store,
		name:  name,

		sqlPut: d.rebind(fmt.Sprintf(
			`INSERT INTO %s (payload) VALUES (?)`, items)),
		sqlClaimSelect: d.rebind(fmt.Sprintf(
			`SELECT id, payload FROM %s WHERE lease_ref IS NULL ORDER BY id LIMIT ?%s`,
			items, d.claimLock())),
		sqlAck: d.rebind(fmt.Sprintf(
			`UPDATE %s SET status = ? WHERE id = ? AND status = ?`, leases)),
		sqlAbandon: d.rebind(fmt.Sprintf(
			`DELETE FROM %s WHERE id = ? AND status = ?`, leases)),
		sqlExpired: d.rebind(fmt.Sprintf(
			`SELECT id FROM %s WHERE status = ? AND created_at <= ? ORDER BY id LIMIT ?%s`,
			leases, d.claimLock())),
		sqlCollect: d.rebind(fmt.Sprintf(
			`DELETE FROM %s WHERE id IN (
               SELECT i.id FROM %s i JOIN %s l ON l.id = i.lease_ref
               WHERE l.status = ? ORDER BY i.id LIMIT ?)`,
			items, items, leases)),
		sqlItemStats: fmt.Sprintf(
			`SELECT COALESCE(l.status, ''), COUNT(1)
             FROM %s i LEFT JOIN %s l ON l.id = i.lease_ref
             GROUP BY COALESCE(l.status, '')`, items, leases),
		sqlLeaseStats: fmt.Sprintf(
			`SELECT status, COUNT(1) FROM %s GROUP BY status`, leases),
	}
}

// Name returns the queue name the handle is bound to.
func (q *Queue) Name() string {
	return q.name
}

// Put appends one item per payload, unleased, in a single durable batch.
// Identifiers within one call are contiguous; no ordering is guaranteed
// across concurrent calls.
func (q *Queue) Put(ctx context.Context, payloads ...[]byte) error {
	if len(payloads) == 0 {
		return ErrNoPayloads
	}
	return q.store.withWriteTx(ctx, func(e execer) error {
		for _, payload := range payloads {
			if _, err := e.ExecContext(ctx, q.sqlPut, payload); err != nil {
				return fmt.Errorf("put item: %w", err)
			}
		}
		return nil
	})
}

// Claim atomically creates a pending lease, binds up to limit unclaimed items
// to it in insertion order, and returns the lease id with the claimed
// payloads. Items a concurrent claim is selecting are skipped, never waited
// on: two simultaneous claims cannot return overlapping items.
//
// When no items are available, or when withAck is false, the lease is
// acknowledged inside the same transaction and the caller owes no further
// call. A lease returned with payloads and withAck true must be acknowledged,
// abandoned, or left to expire.
func (q *Queue) Claim(ctx context.Context, limit int, withAck bool) (*Claim, error) {
	if limit <= 0 {
		return nil, ErrBadLimit
	}

	var claim Claim
	err := q.store.withWriteTx(ctx, func(e execer) error {
		leaseID, err := q.store.dialect.insertLease(ctx, e, q.name, nowMillis())
		if err != nil {
			return err
		}

		ids, payloads, err := q.selectUnclaimed(ctx, e, limit)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := q.stampItems(ctx, e, leaseID, ids); err != nil {
				return err
			}
		}
		if len(ids) == 0 || !withAck {
			if _, err := e.ExecContext(ctx, q.sqlAck,
				string(StatusAcknowledged), leaseID, string(StatusPending)); err != nil {
				return fmt.Errorf("auto-acknowledge lease: %w", err)
			}
		}

		claim = Claim{LeaseID: leaseID, Payloads: payloads}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (q *Queue) selectUnclaimed(ctx context.Context, e execer, limit int) ([]int64, [][]byte, error) {
	rows, err := e.QueryContext(ctx, q.sqlClaimSelect, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("select unclaimed: %w", err)
	}
	defer rows.Close()

	var (
		ids      []int64
		payloads [][]byte
	)
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return ids, payloads, nil
}

func (q *Queue) stampItems(ctx context.Context, e execer, leaseID int64, ids []int64) error {
	query := q.store.dialect.rebind(fmt.Sprintf(
		`UPDATE %s SET lease_ref = ? WHERE id IN (%s)`,
		itemTable(q.name), makePlaceholders(len(ids))))
	args := make([]any, 0, len(ids)+1)
	args = append(args, leaseID)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("stamp items: %w", err)
	}
	return nil
}

// Acknowledge confirms a lease. It returns true exactly once per lease: only
// the call that observes the pending status wins the transition. A repeat
// call, or a call with an unknown lease id, returns false with no effect.
//
// With deleteItems the winning call also deletes the lease and every item
// bound to it in the same transaction, trading the completion record for
// immediate space reclamation.
func (q *Queue) Acknowledge(ctx context.Context, leaseID int64, deleteItems bool) (bool, error) {
	if !deleteItems {
		res, err := q.store.db.ExecContext(ctx, q.sqlAck,
			string(StatusAcknowledged), leaseID, string(StatusPending))
		if err != nil {
			return false, fmt.Errorf("acknowledge lease: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("rows affected: %w", err)
		}
		return affected > 0, nil
	}

	won := false
	err := q.store.withWriteTx(ctx, func(e execer) error {
		res, err := e.ExecContext(ctx, q.sqlAck,
			string(StatusAcknowledged), leaseID, string(StatusPending))
		if err != nil {
			return fmt.Errorf("acknowledge lease: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		won = true

		deleteRefs := q.store.dialect.rebind(fmt.Sprintf(
			`DELETE FROM %s WHERE lease_ref = ?`, itemTable(q.name)))
		if _, err := e.ExecContext(ctx, deleteRefs, leaseID); err != nil {
			return fmt.Errorf("delete acknowledged items: %w", err)
		}
		deleteLease := q.store.dialect.rebind(fmt.Sprintf(
			`DELETE FROM %s WHERE id = ?`, leaseTable(q.name)))
		if _, err := e.ExecContext(ctx, deleteLease, leaseID); err != nil {
			return fmt.Errorf("delete lease: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// Abandon deletes a still-pending lease and returns its items to the
// unclaimed pool. It returns false for an unknown or already-acknowledged
// lease so a stray abandon can never undo completed work.
func (q *Queue) Abandon(ctx context.Context, leaseID int64) (bool, error) {
	won := false
	err := q.store.withWriteTx(ctx, func(e execer) error {
		res, err := e.ExecContext(ctx, q.sqlAbandon, leaseID, string(StatusPending))
		if err != nil {
			return fmt.Errorf("abandon lease: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}
		won = true
		return q.detachItems(ctx, e, []int64{leaseID})
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// ReclaimExpired deletes up to limit pending leases whose age is at least
// maxAge and detaches their items, making them claimable again. This is the
// crash-recovery sweep: a consumer that died mid-lease loses the lease here
// and its work is redelivered to someone else. The count of reclaimed leases
// is returned.
func (q *Queue) ReclaimExpired(ctx context.Context, maxAge time.Duration, limit int) (int64, error) {
	if limit <= 0 {
		return 0, ErrBadLimit
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	var reclaimed int64
	err := q.store.withWriteTx(ctx, func(e execer) error {
		rows, err := e.QueryContext(ctx, q.sqlExpired, string(StatusPending), cutoff, limit)
		if err != nil {
			return fmt.Errorf("select expired leases: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		query := q.store.dialect.rebind(fmt.Sprintf(
			`DELETE FROM %s WHERE status = ? AND id IN (%s)`,
			leaseTable(q.name), makePlaceholders(len(ids))))
		args := make([]any, 0, len(ids)+1)
		args = append(args, string(StatusPending))
		for _, id := range ids {
			args = append(args, id)
		}
		res, err := e.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete expired leases: %w", err)
		}
		reclaimed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return q.detachItems(ctx, e, ids)
	})
	if err != nil {
		return 0, err
	}
	return reclaimed, nil
}

// detachItems clears lease references inside the same transaction that
// deleted the leases. The schema's ON DELETE SET NULL covers this already;
// the explicit update keeps detachment correct even against a database
// created before foreign key enforcement was enabled.
func (q *Queue) detachItems(ctx context.Context, e execer, leaseIDs []int64) error {
	query := q.store.dialect.rebind(fmt.Sprintf(
		`UPDATE %s SET lease_ref = NULL WHERE lease_ref IN (%s)`,
		itemTable(q.name), makePlaceholders(len(leaseIDs))))
	args := make([]any, 0, len(leaseIDs))
	for _, id := range leaseIDs {
		args = append(args, id)
	}
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("detach items: %w", err)
	}
	return nil
}

// CollectAcknowledged deletes up to limit items whose lease has been
// acknowledged. The lease rows stay behind as completion records; this bounds
// item growth for consumers that acknowledge without deleteItems. The count
// of deleted items is returned.
func (q *Queue) CollectAcknowledged(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, ErrBadLimit
	}
	res, err := q.store.db.ExecContext(ctx, q.sqlCollect, string(StatusAcknowledged), limit)
	if err != nil {
		return 0, fmt.Errorf("collect acknowledged: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// Stats counts items by lease state and leases by status.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := q.store.db.QueryContext(ctx, q.sqlItemStats)
	if err != nil {
		return Stats{}, fmt.Errorf("item stats: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Stats{}, err
		}
		switch LeaseStatus(status) {
		case StatusPending:
			stats.Leased += count
		case StatusAcknowledged:
			stats.Acknowledged += count
		default:
			stats.Unclaimed += count
		}
	}
	if err := rows.Close(); err != nil {
		return Stats{}, err
	}

	rows, err = q.store.db.QueryContext(ctx, q.sqlLeaseStats)
	if err != nil {
		return Stats{}, fmt.Errorf("lease stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch LeaseStatus(status) {
		case StatusPending:
			stats.PendingLeases += count
		case StatusAcknowledged:
			stats.DoneLeases += count
		}
	}
	return stats, rows.Err()
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
