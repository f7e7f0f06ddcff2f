// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/dextracker/dextracker/internal/account"
	accountpg "github.com/dextracker/dextracker/internal/account/postgres"
)

// failingDexRepository inserts the dex and then fails, as a constraint
// violation or dropped connection would after the statement ran.
type failingDexRepository struct {
	*accountpg.AccountRepository
}

var errDexWrite = errors.New("dex write failed")

func (r failingDexRepository) CreateDex(ctx context.Context, dex *account.Dex) error {
	if err := r.AccountRepository.CreateDex(ctx, dex); err != nil {
		return err
	}
	return errDexWrite
}

var _ = Describe("Account creation", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
	})

	It("persists the user and first dex together", func() {
		res, err := env.Service.Create(ctx, newInput("ash"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Token).To(Equal("token-for-ash"))

		Expect(res.Account.Dexes).To(HaveLen(1))
		dex := res.Account.Dexes[0]
		Expect(dex.Slug).To(Equal("kanto-living-dex"))
		Expect(dex.Game.GameFamilyID).To(Equal(dex.DexType.GameFamilyID))
		Expect(*res.Account.LastIP).To(Equal("10.0.0.1"))
	})

	It("stores only a bcrypt hash", func() {
		_, err := env.Service.Create(ctx, newInput("ash"))
		Expect(err).NotTo(HaveOccurred())

		var stored string
		Expect(env.pool.QueryRow(ctx, `SELECT password FROM users WHERE username = 'ash'`).Scan(&stored)).To(Succeed())
		Expect(stored).NotTo(Equal("pikachu123"))
		ok, err := account.NewBcryptHasher(0).Verify("pikachu123", stored)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("rejects a username differing only in case", func() {
		_, err := env.Service.Create(ctx, newInput("ash"))
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.Create(ctx, newInput("ASH"))
		Expect(errors.Is(err, account.ErrExistingUsername)).To(BeTrue())
		Expect(countRows(ctx, "users")).To(Equal(1))
	})

	It("writes nothing on a family mismatch", func() {
		in := newInput("misty")
		in.DexTypeID = 9

		_, err := env.Service.Create(ctx, in)
		Expect(errors.Is(err, account.ErrGameDexTypeMismatch)).To(BeTrue())
		Expect(countRows(ctx, "users")).To(BeZero())
		Expect(countRows(ctx, "dexes")).To(BeZero())
	})

	It("rolls back the user when the dex write fails", func() {
		svc, err := newService(env.pool, failingDexRepository{env.Accounts})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Create(ctx, newInput("erika"))
		Expect(errors.Is(err, errDexWrite)).To(BeTrue(), "unexpected error: %v", err)
		Expect(countRows(ctx, "users")).To(BeZero())
		Expect(countRows(ctx, "dexes")).To(BeZero())

		_, err = env.Accounts.GetByUsername(ctx, "erika")
		Expect(errors.Is(err, account.ErrNotFound)).To(BeTrue())
	})

	It("reports an unknown game", func() {
		in := newInput("brock")
		in.GameID = "gold"

		_, err := env.Service.Create(ctx, in)
		var nf *account.NotFoundError
		Expect(errors.As(err, &nf)).To(BeTrue())
		Expect(nf.Resource).To(Equal("game"))
	})

	It("lets exactly one concurrent registration win", func() {
		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := range racers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = env.Service.Create(ctx, newInput("gary"))
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			Expect(errors.Is(err, account.ErrExistingUsername)).To(BeTrue(), "unexpected error: %v", err)
		}
		Expect(succeeded).To(Equal(1))
		Expect(countRows(ctx, "users")).To(Equal(1))
		Expect(countRows(ctx, "dexes")).To(Equal(1))
	})
})

var _ = Describe("Account update", func() {
	var (
		ctx   context.Context
		owner *account.Account
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
		res, err := env.Service.Create(ctx, newInput("ash"))
		Expect(err).NotTo(HaveOccurred())
		owner = res.Account
	})

	It("updates friend codes for the owner", func() {
		fc := "SW-1111-2222-3333"
		res, err := env.Service.Update(ctx, "ash", owner.ID, account.UpdatePatch{FriendCodeSwitch: &fc})
		Expect(err).NotTo(HaveOccurred())
		Expect(*res.Account.FriendCodeSwitch).To(Equal(fc))
		Expect(res.Account.ModifiedAt).To(BeTemporally(">=", owner.ModifiedAt))
	})

	It("clears a friend code with an empty string", func() {
		fc := "1234-5678-9012"
		_, err := env.Service.Update(ctx, "ash", owner.ID, account.UpdatePatch{FriendCode3DS: &fc})
		Expect(err).NotTo(HaveOccurred())

		empty := ""
		res, err := env.Service.Update(ctx, "ash", owner.ID, account.UpdatePatch{FriendCode3DS: &empty})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Account.FriendCode3DS).To(BeNil())
	})

	It("forbids another caller and changes nothing", func() {
		password := "stolen-password"
		_, err := env.Service.Update(ctx, "ash", ulid.Make(), account.UpdatePatch{Password: &password})
		Expect(errors.Is(err, account.ErrForbiddenAction)).To(BeTrue())

		got, err := env.Accounts.GetByUsername(ctx, "ash")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal(owner.PasswordHash))
	})

	It("forbids updating a username that does not exist", func() {
		_, err := env.Service.Update(ctx, "nobody", owner.ID, account.UpdatePatch{})
		Expect(errors.Is(err, account.ErrForbiddenAction)).To(BeTrue())
	})
})
