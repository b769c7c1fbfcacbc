//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"

	"github.com/dgraph-io/badger/v4"

	"chat-core/domain"
	"chat-core/errors"
)

type IUserRepository interface {
	Save(user domain.User) error
	FindByID(id string) (domain.User, error)
}

// UserRepository stores the minimal profile (id, name, avatar) joined onto
// message views. Full profile CRUD lives outside this system.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Save(user domain.User) error {
	return runUpdate(r.db, func(txn *badger.Txn) error {
		return putJSON(txn, keyUser(user.ID), user)
	})
}

func (r *UserRepository) FindByID(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyUser(id), &user)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.NotFound("user not found")
	}
	return user, err
}
