package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"tumbi/internal/app/uow"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

var errInvalidID = errors.New("postgres: invalid id")

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeCheckViolation      pq.ErrorCode = "23514"
	codeInvalidText         pq.ErrorCode = "22P02"
)

// translate maps driver errors onto domain sentinels. notFound is returned for
// missing rows and for ids that are not valid uuids.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeInvalidText:
		return notFound
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case "users_email_key":
			return domainuser.ErrEmailAlreadyUsed
		case "users_phone_key":
			return domainuser.ErrPhoneAlreadyUsed
		case "listings_slug_key", "listings_pkey":
			return domainlistings.ErrSlugTaken
		case "idempotency_keys_pkey":
			return uow.ErrDuplicateRequest
		}
	case codeForeignKeyViolation:
		switch pqErr.Table {
		case "saved_listings":
			return domainsaved.ErrListingNotFound
		case "conversations":
			return domainlistings.ErrNotFound
		case "messages":
			return domainchat.ErrNotFound
		}
	case codeCheckViolation:
		if pqErr.Constraint == "conversations_distinct_parties" {
			return domainchat.ErrSelfConversation
		}
	}
	return err
}
