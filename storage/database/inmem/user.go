package inmemdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
)

// userRecord is how a User is persisted: unlike its JSON representation, it keeps the password hash.
type userRecord struct {
	user.User
	PasswordHash []byte `json:"password_hash"`
}

func marshalUser(usr user.User) ([]byte, error) {
	return json.Marshal(userRecord{User: usr, PasswordHash: usr.PasswordHash})
}

func unmarshalUser(data []byte) (user.User, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return user.User{}, err
	}
	rec.User.PasswordHash = rec.PasswordHash
	return rec.User, nil
}

func cloneUser(usr user.User) user.User {
	usr.Roles = cloneStrings(usr.Roles)
	if usr.PasswordHash != nil {
		usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	}
	return usr
}

var userOrderings = comparators[user.User]{
	"id":         byString(func(u user.User) string { return u.ID }),
	"name":       byString(func(u user.User) string { return u.Name }),
	"username":   byString(func(u user.User) string { return u.Username }),
	"email":      byString(func(u user.User) string { return u.Email }),
	"created_at": byTime(func(u user.User) time.Time { return u.CreatedAt }),
	"updated_at": byTime(func(u user.User) time.Time { return u.UpdatedAt }),
	"last_login": byTime(func(u user.User) time.Time { return u.LastLogin }),
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	var err error
	repo.db.read(func() {
		for _, usr := range repo.db.users.rows {
			if excluded[usr.ID] {
				continue
			}
			if username != "" && usr.Username == username {
				err = user.ErrUsernameExists
				return
			}
			if email != "" && usr.Email == email {
				err = user.ErrEmailExists
				return
			}
		}
	})
	return err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID(usr.ID)
	err := repo.db.write(ctx, func(tx *txn) error {
		return put(tx, repo.db.users, usr.ID, usr)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error) {
	var users []user.User
	repo.db.read(func() {
		users = repo.db.users.filter(func(usr user.User) bool {
			switch {
			case !core.ContainsFold(filter.Search, usr.Name, usr.Username, usr.Email):
				return false
			case filter.IsActive != nil && usr.IsActive != *filter.IsActive:
				return false
			case !inRange(usr.CreatedAt, filter.CreatedFrom, filter.CreatedTo):
				return false
			}
			if len(filter.Roles) > 0 {
				for _, role := range usr.Roles {
					if core.StringIn(role, filter.Roles) {
						return true
					}
				}
				return false
			}
			return true
		})
	})
	sortRows(users, userOrderings, orderings, core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		usr   user.User
		found bool
	)
	repo.db.read(func() {
		if filter.ID != "" {
			usr, found = repo.db.users.get(filter.ID)
			return
		}
		for _, u := range repo.db.users.rows {
			for _, v := range filter.UsernameOrEmail {
				if v != "" && (u.Username == v || u.Email == v) {
					usr, found = repo.db.users.clone(u), true
					return
				}
			}
		}
	})
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.users.has(usr.ID) {
			return user.ErrNotFound
		}
		return put(tx, repo.db.users, usr.ID, usr)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		existing := make([]string, 0, len(ids))
		for _, id := range ids {
			if repo.db.users.has(id) {
				existing = append(existing, id)
			}
		}
		remove(tx, repo.db.users, existing...)
		return nil
	})
}
