package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/resolver"
)

type contactsMock struct {
	mock.Mock
}

func (m *contactsMock) FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	args := m.Called(ctx, ownerID, nickname)
	c, _ := args.Get(0).(*core.Contact)
	return c, args.Error(1)
}

func (m *contactsMock) FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error) {
	args := m.Called(ctx, ownerID, value)
	c, _ := args.Get(0).(*core.Contact)
	return c, args.Error(1)
}

type usersMock struct {
	mock.Mock
}

func (m *usersMock) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*core.UserProfile)
	return u, args.Error(1)
}

func (m *usersMock) FindByEmail(ctx context.Context, email string) (*core.UserProfile, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*core.UserProfile)
	return u, args.Error(1)
}

const (
	owner   = "owner-1"
	addrA   = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	addrB   = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	addrBFj = "0xBbBBbBbBBBBbBbBBBbbBbBbbBBBBbBbbBBbbbBbB"
)

var notFound = &core.NotFoundError{Msg: "not found"}

func TestResolveAddressSkipsLookups(t *testing.T) {
	contacts := &contactsMock{}
	users := &usersMock{}
	r := resolver.New(contacts, users)

	res, err := r.Resolve(context.Background(), owner, "  "+addrA+" ", core.Mainnet)
	require.NoError(t, err)

	assert.Equal(t, resolver.KindAddress, res.Kind)
	assert.Equal(t, addrA, res.Address)
	contacts.AssertNotCalled(t, "FindByNickname", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestResolveEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("contact with target user", func(t *testing.T) {
		contacts := &contactsMock{}
		users := &usersMock{}
		contacts.On("FindByOwnerAndValue", ctx, owner, "bob@example.com").
			Return(&core.Contact{Type: core.ContactEmail, Value: "bob@example.com", TargetUserID: "bob"}, nil)
		users.On("Get", ctx, "bob").
			Return(&core.UserProfile{GoogleUserID: "bob", WalletAddressMainnet: addrB, WalletAddressTestnet: addrBFj}, nil)

		res, err := resolver.New(contacts, users).Resolve(ctx, owner, "Bob@Example.com", core.Testnet)
		require.NoError(t, err)

		assert.Equal(t, resolver.KindEmail, res.Kind)
		assert.Equal(t, addrBFj, res.Address)
		assert.Equal(t, "bob", res.TargetUserID)
		users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("registered user without contact", func(t *testing.T) {
		contacts := &contactsMock{}
		users := &usersMock{}
		contacts.On("FindByOwnerAndValue", ctx, owner, "bob@example.com").Return(nil, notFound)
		users.On("FindByEmail", ctx, "bob@example.com").
			Return(&core.UserProfile{GoogleUserID: "bob", WalletAddressMainnet: addrB}, nil)

		res, err := resolver.New(contacts, users).Resolve(ctx, owner, "bob@example.com", core.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, addrB, res.Address)
	})

	t.Run("unknown email", func(t *testing.T) {
		contacts := &contactsMock{}
		users := &usersMock{}
		contacts.On("FindByOwnerAndValue", ctx, owner, "ghost@example.com").Return(nil, notFound)
		users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, notFound)

		res, err := resolver.New(contacts, users).Resolve(ctx, owner, "ghost@example.com", core.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, resolver.KindEmail, res.Kind)
		assert.False(t, res.Resolved())
	})

	t.Run("registered user without wallet", func(t *testing.T) {
		contacts := &contactsMock{}
		users := &usersMock{}
		contacts.On("FindByOwnerAndValue", ctx, owner, "new@example.com").Return(nil, notFound)
		users.On("FindByEmail", ctx, "new@example.com").Return(&core.UserProfile{GoogleUserID: "new"}, nil)

		res, err := resolver.New(contacts, users).Resolve(ctx, owner, "new@example.com", core.Mainnet)
		require.NoError(t, err)
		assert.False(t, res.Resolved())
	})
}

func TestResolveNickname(t *testing.T) {
	ctx := context.Background()

	t.Run("address contact", func(t *testing.T) {
		contacts := &contactsMock{}
		contacts.On("FindByNickname", ctx, owner, "mamá").
			Return(&core.Contact{Type: core.ContactAddress, Value: addrA}, nil)

		res, err := resolver.New(contacts, &usersMock{}).Resolve(ctx, owner, "mamá", core.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, resolver.KindNickname, res.Kind)
		assert.Equal(t, addrA, res.Address)
		assert.Equal(t, "mamá", res.OriginalValue)
	})

	t.Run("email contact linked to user", func(t *testing.T) {
		contacts := &contactsMock{}
		users := &usersMock{}
		contacts.On("FindByNickname", ctx, owner, "bob").
			Return(&core.Contact{Type: core.ContactEmail, Value: "bob@example.com", TargetUserID: "bob-id"}, nil)
		users.On("Get", ctx, "bob-id").Return(&core.UserProfile{GoogleUserID: "bob-id", WalletAddressMainnet: addrB}, nil)

		res, err := resolver.New(contacts, users).Resolve(ctx, owner, "bob", core.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, addrB, res.Address)
	})

	t.Run("unknown nickname", func(t *testing.T) {
		contacts := &contactsMock{}
		contacts.On("FindByNickname", ctx, owner, "nadie").Return(nil, notFound)

		res, err := resolver.New(contacts, &usersMock{}).Resolve(ctx, owner, "nadie", core.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, resolver.KindUnknown, res.Kind)
		assert.Empty(t, res.Address)
	})

	t.Run("backend failure", func(t *testing.T) {
		contacts := &contactsMock{}
		contacts.On("FindByNickname", ctx, owner, "bob").Return(nil, errors.New("firestore unavailable"))

		_, err := resolver.New(contacts, &usersMock{}).Resolve(ctx, owner, "bob", core.Mainnet)
		require.Error(t, err)
	})
}

func TestCachedUsers(t *testing.T) {
	ctx := context.Background()
	users := &usersMock{}
	users.On("Get", mock.Anything, "bob").
		Return(&core.UserProfile{GoogleUserID: "bob", WalletAddressMainnet: addrB}, nil).Once()
	users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, notFound).Twice()

	cached, err := resolver.NewCachedUsers(users, time.Minute)
	require.NoError(t, err)
	t.Cleanup(cached.Close)

	for i := 0; i < 3; i++ {
		profile, err := cached.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, addrB, profile.WalletAddressMainnet)
	}

	for i := 0; i < 2; i++ {
		_, err := cached.FindByEmail(ctx, "new@example.com")
		assert.ErrorIs(t, err, &core.NotFoundError{})
	}

	users.AssertExpectations(t)
}
