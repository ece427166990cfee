package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kliq/backoffice/internal/platform/db"
	"github.com/kliq/backoffice/internal/shared"
)

// Repository defines persistence operations for staff accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// MemoryRepository keeps staff accounts in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users []User
}

// NewMemoryRepository returns a repository holding users.
func NewMemoryRepository(users ...User) *MemoryRepository {
	copied := make([]User, len(users))
	copy(copied, users)
	return &MemoryRepository{users: copied}
}

// SeedUsers builds the default staff accounts, all sharing password.
func SeedUsers(password string) ([]User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash seed password: %w", err)
	}
	now := time.Now().UTC()
	seed := func(email, name string, roles ...string) User {
		return User{
			ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("kliq:"+email)).String(),
			Email:        email,
			Name:         name,
			PasswordHash: string(hash),
			Roles:        roles,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	return []User{
		seed("admin@kliq.local", "Back Office Admin", AllRoles...),
		seed("support@kliq.local", "Support Agent", RoleCustomerView, RoleOrderView),
		seed("catalog@kliq.local", "Catalog Manager", RoleProductView, RoleProductManage, RoleLocalizationManage),
	}, nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return cloneUser(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByID fetches a user by id.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

// List returns every user ordered by email.
func (r *MemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func cloneUser(u User) *User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, roles, is_active, created_at, updated_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM staff_users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM staff_users WHERE id = $1`, id)
	return scanUser(row)
}

// List returns every user ordered by email.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM staff_users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &u, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PGRepository)(nil)
)
