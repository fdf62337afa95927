package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

type mockRepo struct {
	listFunc   func(ctx context.Context, limit int) ([]domain.User, error)
	createFunc func(ctx context.Context, id domain.ID, user domain.NewUser) (domain.User, error)
	deleteFunc func(ctx context.Context, id domain.ID) error
}

func (m *mockRepo) List(ctx context.Context, limit int) ([]domain.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepo) Create(ctx context.Context, id domain.ID, user domain.NewUser) (domain.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, id, user)
	}
	return domain.User{ID: id, Name: user.Name, Email: user.Email}, nil
}

func (m *mockRepo) Delete(ctx context.Context, id domain.ID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "7f1c2a52-3c3e-4a8f-9a53-0d8f0d3a9c11", nil
}

func setupUserService(t *testing.T) (*UserService, *mockRepo, *mockIDGenerator) {
	t.Helper()
	repo := &mockRepo{}
	ids := &mockIDGenerator{}
	svc := NewUserService(UserServiceDeps{
		Repo:        repo,
		IDGenerator: ids,
		Log:         logger.NewWriter(io.Discard, "test", "debug"),
	})
	return svc, repo, ids
}

func TestUserService_Register_TrimsAndStores(t *testing.T) {
	svc, repo, _ := setupUserService(t)
	createdAt := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

	repo.createFunc = func(ctx context.Context, id domain.ID, user domain.NewUser) (domain.User, error) {
		if user.Name != "Ana" || user.Email != "ana@x.com" {
			t.Errorf("expected trimmed values, got %+v", user)
		}
		return domain.User{ID: id, Name: user.Name, Email: user.Email, CreatedAt: createdAt}, nil
	}

	user, err := svc.Register(context.Background(), RegisterInput{Name: "  Ana ", Email: " ana@x.com\t"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != "7f1c2a52-3c3e-4a8f-9a53-0d8f0d3a9c11" {
		t.Errorf("expected generated id, got %s", user.ID)
	}
	if !user.CreatedAt.Equal(createdAt) {
		t.Errorf("expected created_at from store, got %v", user.CreatedAt)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		input   RegisterInput
		message string
	}{
		{"blank name", RegisterInput{Name: "   ", Email: "a@x.com"}, "name is required"},
		{"blank email", RegisterInput{Name: "Ana", Email: ""}, "email is required"},
		{"long name", RegisterInput{Name: strings.Repeat("a", 121), Email: "a@x.com"}, "name must be at most 120 characters"},
		{"long email", RegisterInput{Name: "Ana", Email: strings.Repeat("e", 255)}, "email must be at most 254 characters"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := setupUserService(t)
			repo.createFunc = func(context.Context, domain.ID, domain.NewUser) (domain.User, error) {
				t.Fatal("repository must not be called for invalid input")
				return domain.User{}, nil
			}

			_, err := svc.Register(context.Background(), tc.input)
			if !errors.Is(err, commonerrors.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("expected message %q in %q", tc.message, err.Error())
			}
		})
	}
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, repo, _ := setupUserService(t)
	repo.createFunc = func(context.Context, domain.ID, domain.NewUser) (domain.User, error) {
		return domain.User{}, commonerrors.ErrEmailAlreadyRegistered
	}

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@x.com"})
	if !errors.Is(err, commonerrors.ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestUserService_Register_IDGeneratorError(t *testing.T) {
	svc, _, ids := setupUserService(t)
	ids.newIDFunc = func() (string, error) { return "", errors.New("entropy") }

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@x.com"})
	if !errors.Is(err, commonerrors.ErrUserCreateFailed) {
		t.Fatalf("expected ErrUserCreateFailed, got %v", err)
	}
}

func TestUserService_List_UsesLimit(t *testing.T) {
	svc, repo, _ := setupUserService(t)
	var gotLimit int
	repo.listFunc = func(ctx context.Context, limit int) ([]domain.User, error) {
		gotLimit = limit
		return []domain.User{{ID: "1", Name: "Ana", Email: "ana@x.com"}}, nil
	}

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
	if gotLimit <= 0 {
		t.Errorf("expected positive limit, got %d", gotLimit)
	}
}

func TestUserService_Delete(t *testing.T) {
	const id = "7f1c2a52-3c3e-4a8f-9a53-0d8f0d3a9c11"
	boom := errors.New("connection reset")

	testCases := []struct {
		name    string
		id      string
		repoErr error
		want    error
	}{
		{"success", id, nil, nil},
		{"empty id", "", nil, commonerrors.ErrEmptyUUID},
		{"malformed id", "not-a-uuid", nil, commonerrors.ErrInvalidUUID},
		{"unknown id", id, commonerrors.ErrUserNotFound, commonerrors.ErrUserNotFound},
		{"store failure", id, boom, commonerrors.ErrUserDeleteFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := setupUserService(t)
			repo.deleteFunc = func(ctx context.Context, got domain.ID) error {
				if string(got) != tc.id {
					t.Errorf("expected id %s, got %s", tc.id, got)
				}
				return tc.repoErr
			}

			err := svc.Delete(context.Background(), tc.id)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
