package badgerdb

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core/user"
)

func userKey(id string) []byte         { return []byte("user/" + id) }
func userEmailKey(email string) []byte { return []byte("user_email/" + email) }

// userRecord is the stored user; user.User never serializes its password hash.
type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (rec userRecord) user() user.User {
	return user.User(rec)
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) save(txn *badger.Txn, usr user.User, prevEmail string) error {
	if id, err := getString(txn, userEmailKey(usr.Email)); err == nil && id != usr.ID {
		return user.ErrEmailExists
	} else if err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	if prevEmail != "" && prevEmail != usr.Email {
		if err := txn.Delete(userEmailKey(prevEmail)); err != nil {
			return err
		}
	}
	if err := txn.Set(userEmailKey(usr.Email), []byte(usr.ID)); err != nil {
		return err
	}
	return setJSON(txn, userKey(usr.ID), userRecord(usr))
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	err := repo.db.db.Update(func(txn *badger.Txn) error {
		return repo.save(txn, usr, "")
	})
	if err == user.ErrEmailExists {
		return user.User{}, err
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) get(txn *badger.Txn, id string) (user.User, error) {
	var rec userRecord
	if err := getJSON(txn, userKey(id), &rec); err != nil {
		if err == badger.ErrKeyNotFound {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return rec.user(), nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (usr user.User, err error) {
	err = repo.db.db.View(func(txn *badger.Txn) error {
		usr, err = repo.get(txn, id)
		return err
	})
	return usr, err
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (usr user.User, err error) {
	err = repo.db.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, userEmailKey(email))
		if err == badger.ErrKeyNotFound {
			return user.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "getting user")
		}
		usr, err = repo.get(txn, id)
		return err
	})
	return usr, err
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	err := repo.db.db.Update(func(txn *badger.Txn) error {
		prev, err := repo.get(txn, usr.ID)
		if err != nil {
			return err
		}
		return repo.save(txn, usr, prev.Email)
	})
	if err == user.ErrEmailExists || err == user.ErrNotFound {
		return user.User{}, err
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}
