package repositories

import (
	"github.com/yigit/machzor/internal/db"
)

// Repositories struct holds all repositories
type Repositories struct {
	Student   *StudentRepository
	History   *HistoryRepository
	ImportRun *ImportRunRepository
	User      *UserRepository
	Token     *TokenRepository
}

// NewRepositories creates a new Repositories struct
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		Student:   NewStudentRepository(database),
		History:   NewHistoryRepository(database),
		ImportRun: NewImportRunRepository(database),
		User:      NewUserRepository(database),
		Token:     NewTokenRepository(database),
	}
}
