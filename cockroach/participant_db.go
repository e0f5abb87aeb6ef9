package cockroach

import (
	"context"
	"fmt"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

// Participant resolves userID into a supplier or a client.
// Suppliers are probed first.
func (c *Cockroach) Participant(ctx context.Context, userID string) (types.Participant, error) {
	for _, kind := range []types.ParticipantKind{types.ParticipantKindSupplier, types.ParticipantKindClient} {
		exists, err := c.participantExists(ctx, kind, userID)
		if err != nil {
			return types.Participant{}, err
		}

		if exists {
			return types.Participant{ID: userID, Kind: kind}, nil
		}
	}

	return types.Participant{}, errs.NewNotFoundError("participant not found")
}

func (c *Cockroach) participantExists(ctx context.Context, kind types.ParticipantKind, userID string) (bool, error) {
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = @user_id)`, participantTable(kind))

	var exists bool
	err := c.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sql check %s exists: %w", kind, err)
	}

	return exists, nil
}

// Profile loads the basic profile of an already resolved participant.
func (c *Cockroach) Profile(ctx context.Context, p types.Participant) (types.Profile, error) {
	var out types.Profile

	nameColumn := "full_name"
	if p.Kind == types.ParticipantKindSupplier {
		nameColumn = "company_name"
	}

	q := fmt.Sprintf(`
		SELECT id, @kind::VARCHAR AS kind, %s AS name, email, phone, avatar
		FROM %s
		WHERE id = @user_id
	`, nameColumn, participantTable(p.Kind))

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"kind":    p.Kind,
		"user_id": p.ID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select %s profile: %w", p.Kind, err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Profile])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("participant not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect %s profile: %w", p.Kind, err)
	}

	return out, nil
}

func participantTable(kind types.ParticipantKind) string {
	if kind == types.ParticipantKindSupplier {
		return "suppliers"
	}
	return "clients"
}
