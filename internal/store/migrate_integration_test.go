// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dextracker/dextracker/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		migrator  *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("dextracker_test"),
			postgres.WithUsername("dextracker"),
			postgres.WithPassword("dextracker"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			_ = migrator.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("starts at version zero with everything pending", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Current).To(BeZero())
		Expect(status.Applied).To(BeEmpty())
		Expect(status.Pending).NotTo(BeEmpty())
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Dirty).To(BeFalse())
		Expect(status.Pending).To(BeEmpty())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("enforces case-insensitive usernames", func() {
		pool, err := store.NewPool(ctx, connStr, store.PoolOptions{MaxConns: 2})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password) VALUES ('a', 'Ash', 'x')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password) VALUES ('b', 'ash', 'x')`)
		Expect(err).To(MatchError(ContainSubstring("users_username_lower_key")))
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())

		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})
