package store

import "context"

// Truncate empties every table; Postgres tests share one database.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `TRUNCATE tool_calls, analyses, articles`)
	return err
}
