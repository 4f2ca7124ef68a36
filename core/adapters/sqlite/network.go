package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// NetworkBackend implements ports.NetworkBackend on a Store.
type NetworkBackend struct {
	db    *sql.DB
	owner string
}

var _ ports.NetworkBackend = (*NetworkBackend)(nil)

// List returns the owner's networks in creation order.
func (b *NetworkBackend) List(ctx context.Context) ([]ports.RawNetwork, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, data FROM networks WHERE owner = ? ORDER BY seq`, b.owner)
	if err != nil {
		return nil, fmt.Errorf("querying networks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var networks []ports.RawNetwork
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning network: %w", err)
		}
		network, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		networks = append(networks, network)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating networks: %w", err)
	}
	return networks, nil
}

// Get returns one network or a *domain.NetworkNotFoundError.
func (b *NetworkBackend) Get(ctx context.Context, id string) (ports.RawNetwork, error) {
	data, err := b.load(ctx, b.db, id)
	if err != nil {
		return nil, err
	}
	return decode(id, data)
}

// Create stores network under a new time-ordered UUID.
func (b *NetworkBackend) Create(ctx context.Context, network ports.RawNetwork) (string, error) {
	uid, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating network id: %w", err)
	}
	id := uid.String()

	stored := network.Clone()
	if stored == nil {
		stored = ports.RawNetwork{}
	}
	stored[ports.RawKeyID] = id

	data, err := json.Marshal(stored)
	if err != nil {
		return "", &domain.ValidationError{Field: "network", Message: err.Error()}
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO networks (id, owner, data) VALUES (?, ?, ?)`, id, b.owner, string(data))
	if err != nil {
		return "", fmt.Errorf("inserting network: %w", err)
	}
	return id, nil
}

// Update merges the supplied keys into the stored network.
func (b *NetworkBackend) Update(ctx context.Context, id string, network ports.RawNetwork) error {
	return b.rewrite(ctx, id, func(stored ports.RawNetwork) ports.RawNetwork {
		stored.Merge(network)
		return stored
	})
}

// Replace stores network in place of the existing record.
func (b *NetworkBackend) Replace(ctx context.Context, id string, network ports.RawNetwork) error {
	return b.rewrite(ctx, id, func(ports.RawNetwork) ports.RawNetwork {
		replaced := network.Clone()
		if replaced == nil {
			replaced = ports.RawNetwork{}
		}
		return replaced
	})
}

// rewrite loads the record owned by the session user, applies change and
// stores the result under the same id within one transaction.
func (b *NetworkBackend) rewrite(ctx context.Context, id string, change func(ports.RawNetwork) ports.RawNetwork) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	data, err := b.load(ctx, tx, id)
	if err != nil {
		return err
	}
	stored, err := decode(id, data)
	if err != nil {
		return err
	}
	stored = change(stored)
	stored[ports.RawKeyID] = id

	updated, err := json.Marshal(stored)
	if err != nil {
		return &domain.ValidationError{Field: "network", Message: err.Error()}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE networks SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner = ?`,
		string(updated), id, b.owner)
	if err != nil {
		return fmt.Errorf("updating network: %w", err)
	}
	return tx.Commit()
}

// Delete removes a network or returns a *domain.NetworkNotFoundError.
func (b *NetworkBackend) Delete(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM networks WHERE id = ? AND owner = ?`, id, b.owner)
	if err != nil {
		return fmt.Errorf("deleting network: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting network: %w", err)
	}
	if n == 0 {
		return &domain.NetworkNotFoundError{ID: id}
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (b *NetworkBackend) load(ctx context.Context, q queryer, id string) (string, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM networks WHERE id = ? AND owner = ?`, id, b.owner).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &domain.NetworkNotFoundError{ID: id}
	}
	if err != nil {
		return "", fmt.Errorf("loading network %s: %w", id, err)
	}
	return data, nil
}

func decode(id, data string) (ports.RawNetwork, error) {
	var network ports.RawNetwork
	if err := json.Unmarshal([]byte(data), &network); err != nil {
		return nil, fmt.Errorf("decoding network %s: %w", id, err)
	}
	if network == nil {
		network = ports.RawNetwork{}
	}
	network[ports.RawKeyID] = id
	return network, nil
}
