package todoapi

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates new user accounts: hash the password,
// reject duplicate identifiers, persist inside a transaction.
type RegisterUserHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if err := h.ensureIdentifierAvailable(ctx, tx, "email", event.Email); err != nil {
			return err
		}

		if err := h.ensureIdentifierAvailable(ctx, tx, "username", event.Username); err != nil {
			return err
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Username = event.Username
		user.FullName = event.FullName
		user.IsActive = true

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

func (h *RegisterUserHandler) ensureIdentifierAvailable(ctx context.Context, tx bun.Tx, field, value string) error {
	_, err := h.repo.Users().GetByIdentifierTx(ctx, tx, value)
	if err == nil {
		return goerrors.New(
			fmt.Sprintf("user with %s '%s' already exists", field, value),
			goerrors.CategoryConflict,
		).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeDuplicateIdentifier).
			WithMetadata(map[string]any{"field": field})
	}

	if repository.IsRecordNotFound(err) {
		return nil
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identifier availability")
}
