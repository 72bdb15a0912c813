// Package postgres provides a durable storage.Store backing over pgx,
// grounded on leanlp-BTC-coinjoin's internal/db connection-pool and
// ON-CONFLICT-upsert conventions.
package postgres

import (
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infimum-network/infimum/poll"
	"github.com/infimum-network/infimum/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store is a pgx-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool and pings it, mirroring
// leanlp-BTC-coinjoin's db.Connect.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage/postgres: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// InitSchema applies the embedded schema, idempotently.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("storage/postgres: schema init: %w", err)
	}
	return nil
}

func marshalVerifyKey(vk storage.VerifyKeyRecord) ([]byte, error) {
	abc := make([]string, len(vk.GammaABCG1))
	for i, g := range vk.GammaABCG1 {
		abc[i] = fmt.Sprintf("%x", g)
	}
	dto := verifyKeyDTO{
		AlphaG1:    fmt.Sprintf("%x", vk.AlphaG1),
		BetaG2:     fmt.Sprintf("%x", vk.BetaG2),
		GammaG2:    fmt.Sprintf("%x", vk.GammaG2),
		DeltaG2:    fmt.Sprintf("%x", vk.DeltaG2),
		GammaABCG1: abc,
	}
	return json.Marshal(dto)
}

func unmarshalVerifyKey(raw []byte) (storage.VerifyKeyRecord, error) {
	var dto verifyKeyDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return storage.VerifyKeyRecord{}, err
	}
	var vk storage.VerifyKeyRecord
	if err := decodeFixed(dto.AlphaG1, vk.AlphaG1[:]); err != nil {
		return vk, err
	}
	if err := decodeFixed(dto.BetaG2, vk.BetaG2[:]); err != nil {
		return vk, err
	}
	if err := decodeFixed(dto.GammaG2, vk.GammaG2[:]); err != nil {
		return vk, err
	}
	if err := decodeFixed(dto.DeltaG2, vk.DeltaG2[:]); err != nil {
		return vk, err
	}
	vk.GammaABCG1 = make([][64]byte, len(dto.GammaABCG1))
	for i, g := range dto.GammaABCG1 {
		if err := decodeFixed(g, vk.GammaABCG1[i][:]); err != nil {
			return vk, err
		}
	}
	return vk, nil
}

func decodeFixed(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("storage/postgres: decode hex: %w", err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("storage/postgres: decoded length %d, want %d", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

func (s *Store) GetCoordinator(ctx context.Context, account poll.Account) (*storage.Coordinator, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT public_key_x, public_key_y, process_verify_key, tally_verify_key, last_poll
		FROM coordinators WHERE account = $1`, string(account))

	var x, y []byte
	var processRaw, tallyRaw []byte
	var lastPoll *int64
	if err := row.Scan(&x, &y, &processRaw, &tallyRaw, &lastPoll); err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("storage/postgres: get coordinator: %w", err)
	}

	process, err := unmarshalVerifyKey(processRaw)
	if err != nil {
		return nil, err
	}
	tally, err := unmarshalVerifyKey(tallyRaw)
	if err != nil {
		return nil, err
	}

	c := &storage.Coordinator{
		Account:       account,
		ProcessVerify: process,
		TallyVerify:   tally,
	}
	copy(c.PublicKey.X[:], x)
	copy(c.PublicKey.Y[:], y)
	if lastPoll != nil {
		id := poll.PollID(*lastPoll)
		c.LastPoll = &id
	}
	return c, nil
}

func (s *Store) PutCoordinator(ctx context.Context, c *storage.Coordinator) error {
	processRaw, err := marshalVerifyKey(c.ProcessVerify)
	if err != nil {
		return err
	}
	tallyRaw, err := marshalVerifyKey(c.TallyVerify)
	if err != nil {
		return err
	}
	var lastPoll *int64
	if c.LastPoll != nil {
		v := int64(*c.LastPoll)
		lastPoll = &v
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO coordinators (account, public_key_x, public_key_y, process_verify_key, tally_verify_key, last_poll)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account) DO UPDATE SET
			public_key_x = EXCLUDED.public_key_x,
			public_key_y = EXCLUDED.public_key_y,
			process_verify_key = EXCLUDED.process_verify_key,
			tally_verify_key = EXCLUDED.tally_verify_key,
			last_poll = EXCLUDED.last_poll`,
		string(c.Account), c.PublicKey.X[:], c.PublicKey.Y[:], processRaw, tallyRaw, lastPoll)
	if err != nil {
		return fmt.Errorf("storage/postgres: put coordinator: %w", err)
	}
	return nil
}

func (s *Store) GetPoll(ctx context.Context, id poll.PollID) (*poll.Poll, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT coordinator, created_at, config, state FROM polls WHERE id = $1`, int64(id))

	var coordinator string
	var createdAt int64
	var configRaw, stateRaw []byte
	if err := row.Scan(&coordinator, &createdAt, &configRaw, &stateRaw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("storage/postgres: get poll: %w", err)
	}

	var configDTO pollConfigDTO
	if err := json.Unmarshal(configRaw, &configDTO); err != nil {
		return nil, fmt.Errorf("storage/postgres: decode poll config: %w", err)
	}
	var stateDTO pollStateDTO
	if err := json.Unmarshal(stateRaw, &stateDTO); err != nil {
		return nil, fmt.Errorf("storage/postgres: decode poll state: %w", err)
	}

	return &poll.Poll{
		ID:          id,
		Coordinator: poll.Account(coordinator),
		CreatedAt:   poll.BlockNumber(createdAt),
		Config:      fromPollConfigDTO(configDTO),
		State:       fromPollStateDTO(stateDTO),
	}, nil
}

func (s *Store) PutPoll(ctx context.Context, p *poll.Poll) error {
	configRaw, err := json.Marshal(toPollConfigDTO(p.Config))
	if err != nil {
		return err
	}
	stateRaw, err := json.Marshal(toPollStateDTO(p.State))
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO polls (id, coordinator, created_at, config, state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state`,
		int64(p.ID), string(p.Coordinator), int64(p.CreatedAt), configRaw, stateRaw)
	if err != nil {
		return fmt.Errorf("storage/postgres: put poll: %w", err)
	}
	return nil
}

func (s *Store) NextPollID(ctx context.Context) (poll.PollID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage/postgres: next poll id: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var next int64
	if err := tx.QueryRow(ctx, `SELECT next_id FROM poll_id_sequence FOR UPDATE`).Scan(&next); err != nil {
		return 0, fmt.Errorf("storage/postgres: read poll id sequence: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE poll_id_sequence SET next_id = $1`, next+1); err != nil {
		return 0, fmt.Errorf("storage/postgres: advance poll id sequence: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("storage/postgres: commit poll id sequence: %w", err)
	}
	return poll.PollID(next), nil
}

func (s *Store) AppendCoordinatorPoll(ctx context.Context, account poll.Account, id poll.PollID) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coordinator_poll_ids WHERE account = $1`, string(account)).Scan(&count); err != nil {
		return fmt.Errorf("storage/postgres: count coordinator polls: %w", err)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO coordinator_poll_ids (account, poll_id, ordinal) VALUES ($1, $2, $3)`,
		string(account), int64(id), count)
	if err != nil {
		return fmt.Errorf("storage/postgres: append coordinator poll: %w", err)
	}
	return nil
}

func (s *Store) CoordinatorPolls(ctx context.Context, account poll.Account) ([]poll.PollID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT poll_id FROM coordinator_poll_ids WHERE account = $1 ORDER BY ordinal`, string(account))
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: coordinator polls: %w", err)
	}
	defer rows.Close()

	var ids []poll.PollID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, poll.PollID(id))
	}
	return ids, rows.Err()
}

var _ storage.Store = (*Store)(nil)
