package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/user"
	dummydb "github.com/rmarban/approvio/storage/database/dummy"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo, nil, &core.Config{AppName: "Approvio"})
	return svc, repo
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Jane Roe",
		Username:        "janeroe",
		Email:           "jane@uni.test",
		Password:        "s3cretWord!",
		PasswordConfirm: "s3cretWord!",
	})
	require.NoError(t, err)

	if !usr.IsActive {
		t.Error("new user not active")
	}
	// student is the default role
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	if err = usr.CheckPassword("s3cretWord!"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if usr.ID == "" {
		t.Error("no ID assigned")
	}
}

func TestNewUser_Validate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	existing, err := svc.Create(ctx, user.NewUser{
		Name:            "Jane Roe",
		Username:        "janeroe",
		Email:           "jane@uni.test",
		Password:        "s3cretWord!",
		PasswordConfirm: "s3cretWord!",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		nu      user.NewUser
		wantErr bool
	}{
		{
			name: "ok",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe", Email: "john@uni.test",
				Password: "s3cretWord!", PasswordConfirm: "s3cretWord!",
			},
		},
		{
			name: "duplicate username",
			nu: user.NewUser{
				Name: "Jane Two", Username: existing.Username, Email: "two@uni.test",
				Password: "s3cretWord!", PasswordConfirm: "s3cretWord!",
			},
			wantErr: true,
		},
		{
			name: "duplicate email",
			nu: user.NewUser{
				Name: "Jane Two", Username: "janetwo", Email: existing.Email,
				Password: "s3cretWord!", PasswordConfirm: "s3cretWord!",
			},
			wantErr: true,
		},
		{
			name: "password mismatch",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe", Email: "john@uni.test",
				Password: "s3cretWord!", PasswordConfirm: "s3cretWord?",
			},
			wantErr: true,
		},
		{
			name: "password too short",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe", Email: "john@uni.test",
				Password: "one", PasswordConfirm: "one",
			},
			wantErr: true,
		},
		{
			name: "password all numeric",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe", Email: "john@uni.test",
				Password: "123456789", PasswordConfirm: "123456789",
			},
			wantErr: true,
		},
		{
			name: "password too similar to username",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe11", Email: "john@uni.test",
				Password: "johndoe11", PasswordConfirm: "johndoe11",
			},
			wantErr: true,
		},
		{
			name: "unknown role",
			nu: user.NewUser{
				Name: "John Doe", Username: "johndoe", Email: "john@uni.test",
				Password: "s3cretWord!", PasswordConfirm: "s3cretWord!",
				Roles: []string{"overlord:"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(svc)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Jane Roe",
		Username:        "janeroe",
		Email:           "jane@uni.test",
		Password:        "s3cretWord!",
		PasswordConfirm: "s3cretWord!",
	})
	require.NoError(t, err)

	// by username
	authed, err := svc.Authenticate(ctx, "janeroe", "s3cretWord!")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, authed.ID)
	if authed.LastLogin.IsZero() {
		t.Error("LastLogin not set")
	}

	// by email
	if _, err = svc.Authenticate(ctx, "jane@uni.test", "s3cretWord!"); err != nil {
		t.Errorf("Authenticate() by email failed: %v", err)
	}

	// wrong password
	if _, err = svc.Authenticate(ctx, "janeroe", "nope"); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("Authenticate() error = %v; want %v", err, user.ErrNotFound)
	}

	// unknown user
	if _, err = svc.Authenticate(ctx, "ghost", "nope"); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("Authenticate() error = %v; want %v", err, user.ErrNotFound)
	}

	// deactivated account
	inactive := false
	_, err = repo.UpdateUser(ctx, user.User{ID: usr.ID}, &inactive)
	require.NoError(t, err)
	if _, err = svc.Authenticate(ctx, "janeroe", "s3cretWord!"); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("Authenticate() error = %v; want %v", err, user.ErrNotFound)
	}
}

func TestService_Update(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Jane Roe",
		Username:        "janeroe",
		Email:           "jane@uni.test",
		Password:        "s3cretWord!",
		PasswordConfirm: "s3cretWord!",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, usr.ID, user.UpdateUser{
		Name:  "Jane R.",
		Roles: []string{user.RoleTeacher},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane R.", updated.Name)
	assert.Equal(t, []string{user.RoleTeacher}, updated.Roles)
	// untouched fields survive
	assert.Equal(t, usr.Email, updated.Email)
	if !updated.IsTeacher() {
		t.Error("IsTeacher() = false after role update")
	}
}

func TestService_Delete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Jane Roe",
		Username:        "janeroe",
		Email:           "jane@uni.test",
		Password:        "s3cretWord!",
		PasswordConfirm: "s3cretWord!",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, usr.ID))
	if _, err = svc.GetByID(ctx, usr.ID); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v; want %v", err, user.ErrNotFound)
	}
}
