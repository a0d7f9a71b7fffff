package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/user"
)

var (
	userColumns = []string{
		"id", "name", "username", "email", "bio", "avatar_url", "is_active", "is_verified",
		"roles", "password_hash", "created_at", "updated_at", "last_login",
	}
	userOrderings = map[string]string{
		"id":         "id",
		"name":       "name",
		"username":   "username",
		"email":      "email",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	Bio          string         `db:"bio"`
	AvatarURL    string         `db:"avatar_url"`
	IsActive     bool           `db:"is_active"`
	IsVerified   bool           `db:"is_verified"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Bio:          usr.Bio,
		AvatarURL:    usr.AvatarURL,
		IsActive:     usr.IsActive,
		IsVerified:   usr.IsVerified,
		Roles:        roles,
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Bio:          r.Bio,
		AvatarURL:    r.AvatarURL,
		IsActive:     r.IsActive,
		IsVerified:   r.IsVerified,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	b, ok := buildUniquenessQuery(username, email, excludedUsers)
	if !ok {
		return nil
	}

	var rows []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func buildUniquenessQuery(username, email string, excludedUsers []user.User) (sq.SelectBuilder, bool) {
	match := sq.Or{}
	if username != "" {
		match = append(match, sq.Eq{"username": username})
	}
	if email != "" {
		match = append(match, sq.Eq{"email": email})
	}
	if len(match) == 0 {
		return sq.SelectBuilder{}, false
	}

	b := psql.Select("username", "email").From("users").Where(match)
	if len(excludedUsers) > 0 {
		ids := make([]int64, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}
	return b.Limit(2), true
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	b := psql.Insert("users").
		Columns(userColumns[1:]...).
		Values(
			row.Name, row.Username, row.Email, row.Bio, row.AvatarURL, row.IsActive, row.IsVerified,
			row.Roles, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
		).
		Suffix("RETURNING id")

	if err := get(ctx, repo.db, &usr.ID, b); err != nil {
		if uniqueErr := trapUniqueUserErr(err); uniqueErr != nil {
			return user.User{}, uniqueErr
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func buildUsersQuery(filter *user.QueryFilter, ordering []core.DBOrdering) sq.SelectBuilder {
	b := psql.Select(userColumns...).From("users")

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + escapeLike(filter.Search) + "%"
			b = b.Where(sq.Or{
				sq.Expr("name ILIKE ?", val),
				sq.Expr("username ILIKE ?", val),
				sq.Expr("email ILIKE ?", val),
			})
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roles := sq.Or{}
			for _, role := range filter.Roles {
				roles = append(roles, sq.Expr("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ?)", escapeLike(role)+"%"))
			}
			b = b.Where(roles)
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			b = b.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			b = b.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	clauses := orderBy(ordering, userOrderings)
	if len(clauses) == 0 {
		clauses = []string{"id ASC"}
	}
	return b.OrderBy(clauses...)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, buildUsersQuery(filter, ordering)); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != 0:
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		b = b.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := get(ctx, repo.db, &row, b); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

// UpdateUser also refreshes the search document of the user's courses when their name changed.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var oldName string
		if err := tx.GetContext(ctx, &oldName, "SELECT name FROM users WHERE id = $1 FOR UPDATE", usr.ID); err != nil {
			return trapNoRowsErr(err, user.ErrNotFound, "locking user")
		}

		b := psql.Update("users").SetMap(map[string]interface{}{
			"name":          row.Name,
			"username":      row.Username,
			"email":         row.Email,
			"bio":           row.Bio,
			"avatar_url":    row.AvatarURL,
			"is_active":     row.IsActive,
			"is_verified":   row.IsVerified,
			"roles":         row.Roles,
			"password_hash": row.PasswordHash,
			"updated_at":    row.UpdatedAt,
			"last_login":    row.LastLogin,
		}).Where(sq.Eq{"id": row.ID})
		if _, err := exec(ctx, tx, b); err != nil {
			if uniqueErr := trapUniqueUserErr(err); uniqueErr != nil {
				return uniqueErr
			}
			return errors.Wrap(err, "updating user")
		}

		if oldName != row.Name {
			return refreshSearchVectors(ctx, tx, sq.Eq{"c.teacher_id": row.ID})
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// trapUniqueUserErr maps unique violations to the matching user error.
func trapUniqueUserErr(err error) error {
	switch constraint := violatedConstraint(err); {
	case constraint == "":
		return nil
	case strings.Contains(constraint, "username"):
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := exec(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": ids})); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
