// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

// Package mocks provides testify mocks for the account package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/dextracker/dextracker/internal/account"
)

// MockAccountRepository is a mock of account.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*account.Account, error) {
	ret := m.Called(ctx, username)
	acct, _ := ret.Get(0).(*account.Account)
	return acct, ret.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, acct *account.Account) error {
	return m.Called(ctx, acct).Error(0)
}

func (m *MockAccountRepository) CreateDex(ctx context.Context, dex *account.Dex) error {
	return m.Called(ctx, dex).Error(0)
}

func (m *MockAccountRepository) UpdateOwned(ctx context.Context, username string, ownerID ulid.ULID, changes account.Changes) (int64, error) {
	ret := m.Called(ctx, username, ownerID, changes)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockReferenceRepository is a mock of account.ReferenceRepository.
type MockReferenceRepository struct {
	mock.Mock
}

// NewMockReferenceRepository creates a mock that asserts its expectations on cleanup.
func NewMockReferenceRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReferenceRepository {
	m := &MockReferenceRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockReferenceRepository) GetGame(ctx context.Context, id string) (*account.Game, error) {
	ret := m.Called(ctx, id)
	game, _ := ret.Get(0).(*account.Game)
	return game, ret.Error(1)
}

func (m *MockReferenceRepository) GetDexType(ctx context.Context, id int) (*account.DexType, error) {
	ret := m.Called(ctx, id)
	dexType, _ := ret.Get(0).(*account.DexType)
	return dexType, ret.Error(1)
}

// MockPasswordHasher is a mock of account.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// MockTokenIssuer is a mock of account.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

// NewMockTokenIssuer creates a mock that asserts its expectations on cleanup.
func NewMockTokenIssuer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenIssuer) Issue(acct *account.Account) (string, error) {
	ret := m.Called(acct)
	return ret.String(0), ret.Error(1)
}

// InlineTransactor runs the callback directly. Set Err to fail the
// "commit" after a successful callback.
type InlineTransactor struct {
	Calls int
	Err   error
}

func (t *InlineTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return t.Err
}

// Compile-time interface checks.
var (
	_ account.AccountRepository   = (*MockAccountRepository)(nil)
	_ account.ReferenceRepository = (*MockReferenceRepository)(nil)
	_ account.PasswordHasher      = (*MockPasswordHasher)(nil)
	_ account.TokenIssuer         = (*MockTokenIssuer)(nil)
	_ account.Transactor          = (*InlineTransactor)(nil)
)
