package repositories

import "context"

// NextSequence atomically allocates the next value of the series identified
// by key. The first allocation returns floor; later ones return the previous
// value plus one, never less than floor. Concurrent callers serialise on the
// counter row, so no two callers ever receive the same value.
func (q *Queries) NextSequence(ctx context.Context, key string, floor int64) (int64, error) {
	var value int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO identifier_counters (scope_key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (scope_key) DO UPDATE
		 SET value = GREATEST(identifier_counters.value + 1, EXCLUDED.value),
		     updated_at = NOW()
		 RETURNING value`,
		key, floor,
	).Scan(&value)
	if err != nil {
		return 0, mapError(err, "allocate "+key)
	}
	return value, nil
}

// AdvanceSequence raises the series to at least atLeast so the next
// allocation returns a larger value. It never lowers a counter.
func (q *Queries) AdvanceSequence(ctx context.Context, key string, atLeast int64) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO identifier_counters (scope_key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (scope_key) DO UPDATE
		 SET value = GREATEST(identifier_counters.value, EXCLUDED.value),
		     updated_at = NOW()`,
		key, atLeast,
	)
	return mapError(err, "advance "+key)
}
