package models

import (
	"log"

	"github.com/nossocofre/cofre_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Vault{}, &VaultMember{},
		&Account{},
		&Transaction{},
		&Goal{}, &GoalParticipant{}, &GoalVisibilityEvent{},
		&Invitation{},
		&Report{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
