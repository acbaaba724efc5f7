package store

import "context"

type LBRow struct {
	Username string `json:"username"`
	Hits     int    `json:"hits"`
	Shots    int    `json:"shots"`
	Matches  int    `json:"matches"`
}

// QueryLeaderboard ranks display names by the hits their defenders reported.
func (db *DB) QueryLeaderboard(ctx context.Context) ([]LBRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT username, SUM(hits) AS hits, SUM(shots) AS shots, COUNT(*) AS matches
		FROM (
			SELECT p1_name AS username, p1_hits AS hits, p1_shots AS shots FROM matches
			UNION ALL
			SELECT p2_name, p2_hits, p2_shots FROM matches
		) per_player
		GROUP BY username
		ORDER BY hits DESC, shots ASC
		LIMIT 50`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Username, &r.Hits, &r.Shots, &r.Matches); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
