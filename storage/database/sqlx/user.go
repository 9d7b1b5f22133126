package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         null.String    `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	IsApproved   null.Bool      `db:"is_approved"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name.String,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive.Ptr(),
		IsApproved:   r.IsApproved.Ptr(),
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

const userColumns = `id, name, username, email, is_active, is_approved, roles, password_hash, created_at, updated_at, last_login`

// orderableUserColumns whitelists ORDER BY fields; ordering comes from the
// query string and must never reach the SQL text unchecked.
var orderableUserColumns = map[string]bool{
	"name":        true,
	"username":    true,
	"email":       true,
	"is_active":   true,
	"is_approved": true,
	"created_at":  true,
	"updated_at":  true,
	"last_login":  true,
}

func userOrderClause(ordering []core.DBOrdering) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !orderableUserColumns[ord.Field] {
			continue
		}
		parts = append(parts, ord.String())
	}
	if len(parts) == 0 {
		return "created_at DESC"
	}
	return strings.Join(parts, ", ")
}

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo UserRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT EXISTS(SELECT 1 FROM "user" WHERE (lower(username) = $1 OR lower(email) = $2)`
	args := []interface{}{strings.ToLower(username), strings.ToLower(email)}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += fmt.Sprintf(" AND NOT (id = ANY($%d))", len(args)+1)
		args = append(args, pq.Array(ids))
	}
	query += ")"

	var exists bool
	if err := repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		// find out which attribute clashes
		var unameTaken bool
		err := repo.getExec(exec).QueryRowContext(
			ctx, `SELECT EXISTS(SELECT 1 FROM "user" WHERE lower(username) = $1)`, strings.ToLower(username),
		).Scan(&unameTaken)
		if err != nil {
			return errors.Wrap(err, "checking username uniqueness")
		}
		if unameTaken && username != "" {
			return user.ErrUsernameExists
		}
		return user.ErrEmailExists
	}
	return nil
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO "user" (id, name, username, email, is_active, is_approved, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usr.ID, usr.Name, usr.Username, usr.Email,
		null.BoolFromPtr(usr.IsActive), null.BoolFromPtr(usr.IsApproved),
		pq.Array(usr.Roles), usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo UserRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ID != "" {
		conds = append(conds, "id = "+arg(filter.ID))
	}
	if filter.Username != "" {
		conds = append(conds, "lower(username) = "+arg(strings.ToLower(filter.Username)))
	}
	if filter.Email != "" {
		conds = append(conds, "lower(email) = "+arg(strings.ToLower(filter.Email)))
	}
	if len(filter.UsernameOrEmail) > 0 {
		for _, v := range filter.UsernameOrEmail {
			v = strings.ToLower(v)
			conds = append(conds, "lower(username) = "+arg(v))
			conds = append(conds, "lower(email) = "+arg(v))
		}
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM "user" WHERE %s LIMIT 1`, userColumns, strings.Join(conds, " OR "))

	var row userRow
	if err := sqlx.GetContext(ctx, repo.queryer(exec), &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.unpack(), nil
}

func (repo UserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	conds := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			p := arg(val)
			conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds,
					fmt.Sprintf(`id IN (SELECT id FROM "user", UNNEST(roles) user_role WHERE user_role ILIKE %s)`, arg(role+"%")))
			}
			conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if filter.IsApproved != nil {
			conds = append(conds, "is_approved = "+arg(*filter.IsApproved))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	orderBy := userOrderClause(ordering)

	query := fmt.Sprintf(`SELECT %s FROM "user" WHERE %s ORDER BY %s`,
		userColumns, strings.Join(conds, " AND "), orderBy)

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	sets := []string{"updated_at = $1"}
	args := []interface{}{usr.UpdatedAt.UTC()}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Roles != nil {
		set("roles", pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if usr.IsActive != nil {
		set("is_active", *usr.IsActive)
	}
	if usr.IsApproved != nil {
		set("is_approved", *usr.IsApproved)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}

	args = append(args, usr.ID)
	query := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo UserRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		existing, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{usr.Username, usr.Email}}, exec...)
		if err != nil {
			if err != user.ErrNotFound {
				return user.User{}, err
			}
			now := time.Now().UTC()
			usr.CreatedAt, usr.UpdatedAt = now, now
			return repo.CreateUser(ctx, usr, exec...)
		}
		usr.ID = existing.ID
	}
	usr.UpdatedAt = time.Now().UTC()
	return repo.UpdateUser(ctx, usr, exec...)
}

// queryer adapts the optional service-provided executor for sqlx scanning.
func (repo UserRepository) queryer(svcExec []core.DBExecutor) sqlx.QueryerContext {
	if len(svcExec) > 0 {
		if tx, ok := svcExec[0].(*sql.Tx); ok {
			return &sqlx.Tx{Tx: tx, Mapper: repo.db.Mapper}
		}
	}
	return repo.db
}
