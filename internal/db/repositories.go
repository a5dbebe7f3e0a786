package db

import "gorm.io/gorm"

type Repositories struct {
	Profiles *ProfileRepository
	Ledger   *LedgerRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Profiles: NewProfileRepository(database),
		Ledger:   NewLedgerRepository(database),
	}
}
