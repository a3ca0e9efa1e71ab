package server

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
	"github.com/becomeliminal/nim-wallet/prices"
	"github.com/becomeliminal/nim-wallet/users"
)

type dispatcherMock struct {
	mock.Mock
}

func (m *dispatcherMock) ProcessMessage(ctx context.Context, input *engine.Input) (*engine.Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*engine.Output)
	return out, args.Error(1)
}

func (m *dispatcherMock) ReportResult(ctx context.Context, input *engine.ReportInput) (*engine.Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*engine.Output)
	return out, args.Error(1)
}

func (m *dispatcherMock) ReportEnrichedResult(ctx context.Context, input *engine.ReportInput) (*engine.Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*engine.Output)
	return out, args.Error(1)
}

type contactsMock struct {
	mock.Mock
}

func (m *contactsMock) AddAddress(ctx context.Context, ownerID, nickname, address string) (*core.Contact, error) {
	args := m.Called(ctx, ownerID, nickname, address)
	c, _ := args.Get(0).(*core.Contact)
	return c, args.Error(1)
}

func (m *contactsMock) AddEmail(ctx context.Context, ownerID, nickname, email string) (*core.Contact, error) {
	args := m.Called(ctx, ownerID, nickname, email)
	c, _ := args.Get(0).(*core.Contact)
	return c, args.Error(1)
}

func (m *contactsMock) List(ctx context.Context, ownerID string) ([]core.Contact, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]core.Contact)
	return list, args.Error(1)
}

func (m *contactsMock) GetByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	args := m.Called(ctx, ownerID, nickname)
	c, _ := args.Get(0).(*core.Contact)
	return c, args.Error(1)
}

func (m *contactsMock) Delete(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type usersMock struct {
	mock.Mock
}

func (m *usersMock) Login(ctx context.Context, identity core.GoogleIdentity) (*core.UserProfile, error) {
	args := m.Called(ctx, identity)
	p, _ := args.Get(0).(*core.UserProfile)
	return p, args.Error(1)
}

func (m *usersMock) SaveWallet(ctx context.Context, userID string, network core.Network, address string) (*core.UserProfile, error) {
	args := m.Called(ctx, userID, network, address)
	p, _ := args.Get(0).(*core.UserProfile)
	return p, args.Error(1)
}

func (m *usersMock) WalletAddress(ctx context.Context, userID string, network core.Network) (string, error) {
	args := m.Called(ctx, userID, network)
	return args.String(0), args.Error(1)
}

func (m *usersMock) CheckAddress(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *usersMock) ByAddress(ctx context.Context, address string) (*core.UserProfile, error) {
	args := m.Called(ctx, address)
	p, _ := args.Get(0).(*core.UserProfile)
	return p, args.Error(1)
}

func (m *usersMock) Profile(ctx context.Context, userID string) (*core.UserProfile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*core.UserProfile)
	return p, args.Error(1)
}

type faucetMock struct {
	mock.Mock
}

func (m *faucetMock) Claim(ctx context.Context, userID string) (*users.ClaimResult, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).(*users.ClaimResult)
	return r, args.Error(1)
}

type pricesMock struct {
	mock.Mock
}

func (m *pricesMock) Price(ctx context.Context, symbol, vs string) (*prices.Quote, error) {
	args := m.Called(ctx, symbol, vs)
	q, _ := args.Get(0).(*prices.Quote)
	return q, args.Error(1)
}

type identityMock struct {
	mock.Mock
}

func (m *identityMock) AuthCodeURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (m *identityMock) Exchange(ctx context.Context, code string) (core.GoogleIdentity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(core.GoogleIdentity), args.Error(1)
}
