package models_test

import (
	"testing"

	"github.com/nossocofre/cofre_backend/models"
)

func TestOwnerRefConstructors(t *testing.T) {
	personal := models.PersonalOwner("user-1")
	if !personal.IsPersonal() || personal.Type != models.OwnerTypeUser || personal.Id != "user-1" {
		t.Fatalf("unexpected personal owner %+v", personal)
	}

	vault := models.VaultOwner("vault-1")
	if vault.IsPersonal() || vault.Type != models.OwnerTypeVault || vault.Id != "vault-1" {
		t.Fatalf("unexpected vault owner %+v", vault)
	}
}
