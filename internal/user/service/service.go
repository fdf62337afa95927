package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	commoncrypto "github.com/AlibekovAA/registration-board/internal/common/crypto"
	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	commonhttp "github.com/AlibekovAA/registration-board/internal/common/http"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
	"github.com/AlibekovAA/registration-board/internal/user/repository"
)

type Service interface {
	List(ctx context.Context) ([]domain.User, error)
	Register(ctx context.Context, input RegisterInput) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

type RegisterInput struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,max=254"`
}

type UserServiceDeps struct {
	Repo        repository.Repository
	IDGenerator commoncrypto.IDGenerator
	Log         *logger.Logger
}

type UserService struct {
	repo        repository.Repository
	idGenerator commoncrypto.IDGenerator
	validate    *validator.Validate
	listLimit   int
	log         *logger.Logger
}

func NewUserService(deps UserServiceDeps) *UserService {
	return &UserService{
		repo:        deps.Repo,
		idGenerator: deps.IDGenerator,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		listLimit:   constants.DefaultListLimit,
		log:         deps.Log,
	}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx, s.listLimit)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{"action": "list_users"}).Errorf("list users failed: %v", err)
		return nil, err
	}
	return users, nil
}

// Register stores a new user. Name and email are trimmed before validation;
// the email is not checked for syntax, only for presence and length.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)

	if err := s.validate.Struct(input); err != nil {
		return domain.User{}, commonerrors.ErrValidation.WithCause(describeValidation(err))
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.User{}, commonerrors.ErrUserCreateFailed.WithCause(fmt.Errorf("generate id: %w", err))
	}

	user, err := s.repo.Create(ctx, domain.ID(id), domain.NewUser{Name: input.Name, Email: input.Email})
	if err != nil {
		if errors.Is(err, commonerrors.ErrEmailAlreadyRegistered) {
			s.log.WithFields(ctx, logger.Fields{"action": "register_user"}).Info("email already registered")
		} else {
			s.log.WithFields(ctx, logger.Fields{"action": "register_user"}).Errorf("create user failed: %v", err)
		}
		return domain.User{}, err
	}

	incrementUsersRegistered()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "register_user",
	}).Info("user registered")
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := commonhttp.ValidateUUID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, domain.ID(id)); err != nil {
		if !errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{"user_id": id, "action": "delete_user"}).Errorf("delete user failed: %v", err)
			return commonerrors.ErrUserDeleteFailed.WithCause(err)
		}
		return err
	}

	incrementUsersDeleted()
	s.log.WithFields(ctx, logger.Fields{"user_id": id, "action": "delete_user"}).Info("user deleted")
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
