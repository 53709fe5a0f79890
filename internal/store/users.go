package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
	"github.com/kiranshivaraju/tenantcore/pkg/pagination"
)

// userSortColumns maps the public sort fields onto columns. Only mapped
// fields reach SQL.
var userSortColumns = map[string]string{
	"id":        "id",
	"email":     "email",
	"name":      "name",
	"role":      "role",
	"active":    "active",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const userColumns = `id, tenant_id, email, name, role, active, created_at, updated_at, deleted_at`

// UserTable is the tenant-scoped storage for users. Every statement binds
// both the row id and the tenant id.
type UserTable struct {
	pool *pgxpool.Pool
}

func NewUserTable(pool *pgxpool.Pool) *UserTable {
	return &UserTable{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.Active,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	return u, err
}

func (t *UserTable) Select(ctx context.Context, id, tenantID uuid.UUID) (models.User, error) {
	u, err := scanUser(t.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (t *UserTable) List(ctx context.Context, tenantID uuid.UUID, opts pagination.Options) ([]models.User, int, error) {
	var total int
	if err := t.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND deleted_at IS NULL`, tenantID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE tenant_id = $1 AND deleted_at IS NULL
		 ORDER BY %s LIMIT $2 OFFSET $3`,
		userColumns, orderBy(opts, userSortColumns, "created_at"))

	rows, err := t.pool.Query(ctx, query, tenantID, opts.Limit(), opts.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (t *UserTable) Insert(ctx context.Context, tenantID uuid.UUID, in models.CreateUserInput) (models.User, error) {
	u, err := scanUser(t.pool.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, name, role, active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		tenantID, in.Email, in.Name, in.Role, in.IsActive()))
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.User{}, ErrDuplicateKey
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (t *UserTable) Patch(ctx context.Context, id, tenantID uuid.UUID, in models.UpdateUserInput) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id, tenantID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Role != nil {
		add("role", *in.Role)
	}
	if in.Active != nil {
		add("active", *in.Active)
	}

	tag, err := t.pool.Exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, args...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *UserTable) SoftDelete(ctx context.Context, id, tenantID uuid.UUID) error {
	tag, err := t.pool.Exec(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// orderBy renders an ORDER BY clause from allow-listed columns. Unknown
// fields fall back to def; id is appended as a stable tiebreaker.
func orderBy(opts pagination.Options, columns map[string]string, def string) string {
	col, ok := columns[opts.SortField]
	if !ok {
		col = def
	}
	dir := "ASC"
	if opts.Descending() {
		dir = "DESC"
	}
	if col == "id" {
		return "id " + dir
	}
	return col + " " + dir + ", id " + dir
}
