package services

import (
	"errors"

	"github.com/Dosada05/league-system/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrUsernameRequired       = errors.New("username is required")
	ErrPasswordRequired       = errors.New("password is required")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrNotEnoughPlayers       = errors.New("at least two players are required to generate fixtures")
	ErrInvalidScore           = errors.New("score must be an integer from 0 to 2147483647")
	ErrInvalidFixtureAddress  = errors.New("fixture index or id is required")
	ErrInvalidLogo            = errors.New("logo must be an image")
	ErrUploadsDisabled        = errors.New("logo uploads are not configured")

	// Ошибки конфликтов
	ErrUsernameTaken        = errors.New("username is already taken")
	ErrFixtureAlreadyPlayed = errors.New("a result has already been recorded for this fixture")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication required")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ресурс не найден
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrFixtureNotFound    = errors.New("fixture not found")
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

var kinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindValidation, []error{
		ErrUsernameRequired, ErrPasswordRequired, ErrTournamentNameRequired,
		ErrNotEnoughPlayers, ErrInvalidScore, ErrInvalidFixtureAddress, ErrInvalidLogo, ErrUploadsDisabled,
	}},
	{KindConflict, []error{ErrUsernameTaken, ErrFixtureAlreadyPlayed}},
	{KindUnauthorized, []error{ErrAuthenticationFailed, ErrInvalidCredentials}},
	{KindForbidden, []error{ErrForbiddenOperation}},
	{KindNotFound, []error{ErrUserNotFound, ErrTournamentNotFound, ErrFixtureNotFound}},
}

// KindOf classifies an error returned by a service. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	for _, group := range kinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindInternal
}

// mapRepositoryError переводит ошибки хранилища в ошибки сервисного слоя.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrFixtureNotFound):
		return ErrFixtureNotFound
	case errors.Is(err, repositories.ErrFixtureAlreadyPlayed):
		return ErrFixtureAlreadyPlayed
	case errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, repositories.ErrParticipantUserInvalid),
		errors.Is(err, repositories.ErrTournamentInvalidOwner):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrUserUsernameConflict):
		return ErrUsernameTaken
	default:
		return err
	}
}
