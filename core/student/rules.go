package student

import (
	"context"
	"strings"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/user"
)

var (
	ErrListDenied   = core.NewPermissionError("teachers must search by name to list students")
	ErrCreateDenied = core.NewPermissionError("only admins can add students")
	ErrDeleteDenied = core.NewPermissionError("only admins can delete students")
)

// guardedRepository enforces the store access rules of a caller.
type guardedRepository struct {
	Repository
	caller user.Caller
}

// Authorize returns repo as seen by caller.
func Authorize(repo Repository, caller user.Caller) Repository {
	return &guardedRepository{Repository: repo, caller: caller}
}

func (repo *guardedRepository) QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error) {
	if !repo.caller.IsAdmin() && !filter.Aggregate && strings.TrimSpace(filter.NamePrefix) == "" {
		return nil, ErrListDenied
	}
	return repo.Repository.QueryStudents(ctx, filter)
}

func (repo *guardedRepository) CreateStudents(ctx context.Context, students ...Student) ([]Student, error) {
	if !repo.caller.IsAdmin() {
		return nil, ErrCreateDenied
	}
	return repo.Repository.CreateStudents(ctx, students...)
}

func (repo *guardedRepository) DeleteStudent(ctx context.Context, id string) error {
	if !repo.caller.IsAdmin() {
		return ErrDeleteDenied
	}
	return repo.Repository.DeleteStudent(ctx, id)
}
