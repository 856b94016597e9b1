package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/storage/memstore"
)

func newTestAuth(t *testing.T) *Service {
	t.Helper()
	jwt := NewJWTService(DefaultJWTConfig("test-secret"))
	return NewService(NewFlagRepository(memstore.New()), jwt)
}

func registerUser(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	user := &User{
		ID:      "u1",
		AdminID: "admin1",
		Name:    "Wanjiku",
		Email:   email,
		Role:    RoleCashier,
	}
	require.NoError(t, svc.Register(context.Background(), user, password))
	return user
}

func TestLoginHappyPath(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuth(t)
	registerUser(t, svc, "wanjiku@example.com", "correct horse")

	result, err := svc.Login(ctx, "wanjiku@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.ExpiresAt.IsZero())
	assert.Empty(t, result.User.PasswordHash)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuth(t)
	registerUser(t, svc, "wanjiku@example.com", "correct horse")

	_, badPass := svc.Login(ctx, "wanjiku@example.com", "wrong")
	_, noUser := svc.Login(ctx, "nobody@example.com", "wrong")

	require.Error(t, badPass)
	require.Error(t, noUser)
	assert.Equal(t, badPass.Error(), noUser.Error())
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuth(t)
	registerUser(t, svc, "wanjiku@example.com", "correct horse")

	_, err := svc.Login(ctx, "  Wanjiku@Example.COM ", "correct horse")
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuth(t)

	assert.Error(t, svc.Register(ctx, &User{Email: "", Role: RoleCashier}, "pw"))
	assert.Error(t, svc.Register(ctx, &User{Email: "x@y.com", Role: "superuser"}, "pw"))

	registerUser(t, svc, "dup@example.com", "pw")
	err := svc.Register(ctx, &User{Email: "dup@example.com", Role: RoleCashier}, "pw")
	assert.Error(t, err)
}

func TestTokenRoundTripCarriesUserContext(t *testing.T) {
	jwt := NewJWTService(DefaultJWTConfig("test-secret"))
	user := &User{
		ID:       "u1",
		AdminID:  "admin1",
		Name:     "Wanjiku",
		Role:     RoleAdmin,
		BranchID: "CBD",
	}

	token, _, err := jwt.GenerateAccessToken(user)
	require.NoError(t, err)

	uc, err := jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uc.UserID)
	assert.Equal(t, "admin1", uc.AdminID)
	assert.Equal(t, RoleAdmin, uc.Role)
	assert.Equal(t, "CBD", uc.BranchID)

	_, err = NewJWTService(DefaultJWTConfig("other-secret")).ValidateToken(token)
	assert.Error(t, err)
}

func TestListByAdminReturnsRoster(t *testing.T) {
	ctx := context.Background()
	repo := NewFlagRepository(memstore.New())

	require.NoError(t, repo.Save(ctx, &User{
		ID: "u1", AdminID: "admin1", Email: "wanjiku@example.com", BranchID: "CBD",
	}))
	require.NoError(t, repo.Save(ctx, &User{
		ID: "u2", AdminID: "admin1", Email: "otieno@example.com", BranchID: "Westlands",
	}))
	require.NoError(t, repo.Save(ctx, &User{
		ID: "u3", AdminID: "admin2", Email: "njeri@example.com",
	}))

	users, err := repo.ListByAdmin(ctx, "admin1")
	require.NoError(t, err)
	require.Len(t, users, 2)

	branches := map[string]string{}
	for _, u := range users {
		branches[u.ID] = u.BranchID
	}
	assert.Equal(t, "CBD", branches["u1"])
	assert.Equal(t, "Westlands", branches["u2"])

	users, err = repo.ListByAdmin(ctx, "admin3")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSaveTwiceDoesNotDuplicateRosterEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewFlagRepository(memstore.New())
	user := &User{ID: "u1", AdminID: "admin1", Email: "wanjiku@example.com", BranchID: "CBD"}

	require.NoError(t, repo.Save(ctx, user))
	user.BranchID = "Karen"
	require.NoError(t, repo.Save(ctx, user))

	users, err := repo.ListByAdmin(ctx, "admin1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Karen", users[0].BranchID)
}
