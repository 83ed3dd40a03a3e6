package service

import (
	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
)

// Authorization checks. Every service operation calls one of these
// explicitly with the principal it was handed.

func requireAdmin(p domain.Principal) error {
	if !p.IsAdmin() {
		return apperror.ErrForbidden("Administrator role required")
	}
	return nil
}

func requireOwner(p domain.Principal, ownerID uuid.UUID) error {
	if !p.Owns(ownerID) {
		return apperror.ErrForbidden("Card belongs to another client")
	}
	return nil
}

func requireOwnerOrAdmin(p domain.Principal, ownerID uuid.UUID) error {
	if p.IsAdmin() {
		return nil
	}
	return requireOwner(p, ownerID)
}
