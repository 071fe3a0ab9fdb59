package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vanityforge/vanity-gateway/internal/domain"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	// Check if we should use an external database (for CI or local development)
	dbHost := os.Getenv("TEST_DB_HOST")
	dbPort := os.Getenv("TEST_DB_PORT")
	dbUser := os.Getenv("TEST_DB_USER")
	dbPassword := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")

	var dsn string
	var err error

	if dbHost != "" {
		// Use external database
		if dbPort == "" {
			dbPort = "5432"
		}
		if dbUser == "" {
			dbUser = "postgres"
		}
		if dbPassword == "" {
			dbPassword = "postgres"
		}
		if dbName == "" {
			dbName = "test_db"
		}

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPassword, dbName)

		fmt.Printf("Using external database: %s:%s/%s\n", dbHost, dbPort, dbName)
	} else {
		// Start a PostgreSQL container for testing
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Started PostgreSQL container\n")
	}

	// Connect to the database
	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Apply the schema
	if err := Migrate(testDB); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
		}
	}

	os.Exit(code)
}

// initPGTestDB returns a store running inside a transaction that rolls back
// when the test ends
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

// buildTestPayment creates a payment input for a given signature and amount
func buildTestPayment(signature, sender string, lamports uint64, isPaid bool) CreatePaymentInput {
	raw, _ := json.Marshal(map[string]any{"signature": signature, "amount": lamports})
	return CreatePaymentInput{
		Signature:      signature,
		Sender:         sender,
		Receiver:       "treasury11111111111111111111111111111111111",
		AmountLamports: lamports,
		AmountSOL:      domain.LamportsToSOL(lamports),
		Slot:           1000,
		Raw:            raw,
		ObservedAt:     time.Now().UTC(),
		IsPaid:         isPaid,
	}
}

func TestInsertPaymentIfAbsent(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}
	ctx := context.Background()

	t.Run("creates payment record and order together", func(t *testing.T) {
		s := initPGTestDB(t)

		created, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-1", "alice", 100_000_000, true))
		require.NoError(t, err)
		assert.True(t, created)

		order, err := s.GetOrderByID(ctx, "sig-1")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "alice", order.Payer)
		assert.True(t, order.IsPaid)
		assert.False(t, order.IsUsed)
		assert.Equal(t, "0.1", order.AmountSOL.String())

		payments, total, err := s.ListPayments(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, payments, 1)
		assert.Equal(t, "sig-1", payments[0].Signature)
		assert.Equal(t, uint64(100_000_000), payments[0].AmountLamports)
	})

	t.Run("redelivered signature is a no-op", func(t *testing.T) {
		s := initPGTestDB(t)

		input := buildTestPayment("sig-1", "alice", 100_000_000, true)
		created, err := s.InsertPaymentIfAbsent(ctx, input)
		require.NoError(t, err)
		require.True(t, created)

		for i := 0; i < 3; i++ {
			created, err = s.InsertPaymentIfAbsent(ctx, input)
			require.NoError(t, err)
			assert.False(t, created)
		}

		_, total, err := s.ListPayments(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
	})

	t.Run("redelivery never overwrites the first record", func(t *testing.T) {
		s := initPGTestDB(t)

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-1", "alice", 100_000_000, true))
		require.NoError(t, err)

		// Same signature, different data; the first writer wins.
		altered := buildTestPayment("sig-1", "mallory", 1, false)
		created, err := s.InsertPaymentIfAbsent(ctx, altered)
		require.NoError(t, err)
		assert.False(t, created)

		order, err := s.GetOrderByID(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", order.Payer)
		assert.True(t, order.IsPaid)
	})
}

func TestOrderLookups(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}
	ctx := context.Background()

	t.Run("claimable order skips unpaid and used orders", func(t *testing.T) {
		s := initPGTestDB(t)

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-unpaid", "alice", 1, false))
		require.NoError(t, err)

		claimable, err := s.GetClaimableOrderByPayer(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, claimable)

		latest, err := s.GetLatestOrderByPayer(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.False(t, latest.IsPaid)

		_, err = s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-paid", "alice", 100_000_000, true))
		require.NoError(t, err)

		claimable, err = s.GetClaimableOrderByPayer(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, claimable)
		assert.Equal(t, "sig-paid", claimable.OrderID)

		ok, err := s.TryMarkUsed(ctx, "sig-paid", "foo")
		require.NoError(t, err)
		require.True(t, ok)

		claimable, err = s.GetClaimableOrderByPayer(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, claimable)
	})

	t.Run("unknown payer has no orders", func(t *testing.T) {
		s := initPGTestDB(t)

		claimable, err := s.GetClaimableOrderByPayer(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, claimable)

		latest, err := s.GetLatestOrderByPayer(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, latest)
	})
}

func TestTryMarkUsed(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}
	ctx := context.Background()

	t.Run("transition succeeds exactly once", func(t *testing.T) {
		s := initPGTestDB(t)

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-1", "alice", 100_000_000, true))
		require.NoError(t, err)

		ok, err := s.TryMarkUsed(ctx, "sig-1", "foo")
		require.NoError(t, err)
		assert.True(t, ok)

		order, err := s.GetOrderByID(ctx, "sig-1")
		require.NoError(t, err)
		assert.True(t, order.IsUsed)
		assert.Equal(t, "foo", order.Word)
		assert.NotNil(t, order.UsedAt)

		// Second transition must see zero rows affected.
		ok, err = s.TryMarkUsed(ctx, "sig-1", "bar")
		require.NoError(t, err)
		assert.False(t, ok)

		order, err = s.GetOrderByID(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, "foo", order.Word, "losing transition must not overwrite the word")
	})

	t.Run("unpaid order never transitions", func(t *testing.T) {
		s := initPGTestDB(t)

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-1", "alice", 1, false))
		require.NoError(t, err)

		ok, err := s.TryMarkUsed(ctx, "sig-1", "foo")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown order never transitions", func(t *testing.T) {
		s := initPGTestDB(t)

		ok, err := s.TryMarkUsed(ctx, "sig-missing", "foo")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent transitions admit a single winner", func(t *testing.T) {
		// Runs against the shared pool, not a per-test transaction, so the
		// row-level lock behavior is the real one.
		s := NewPGStore(testDB)
		signature := fmt.Sprintf("sig-concurrent-%d", time.Now().UnixNano())
		t.Cleanup(func() {
			testDB.Exec("DELETE FROM vanity_orders WHERE order_id = ?", signature)
			testDB.Exec("DELETE FROM payment_records WHERE signature = ?", signature)
		})

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment(signature, "alice", 100_000_000, true))
		require.NoError(t, err)

		const attempts = 8
		results := make(chan bool, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				ok, err := s.TryMarkUsed(ctx, signature, fmt.Sprintf("word-%d", n))
				assert.NoError(t, err)
				results <- ok
			}(i)
		}
		wg.Wait()
		close(results)

		winners := 0
		for ok := range results {
			if ok {
				winners++
			}
		}
		assert.Equal(t, 1, winners, "exactly one concurrent transition must win")
	})
}

func TestMarkGenerated(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}
	ctx := context.Background()

	t.Run("confirms a used order once", func(t *testing.T) {
		s := initPGTestDB(t)

		_, err := s.InsertPaymentIfAbsent(ctx, buildTestPayment("sig-1", "alice", 100_000_000, true))
		require.NoError(t, err)

		// Not used yet: confirmation is refused.
		ok, err := s.MarkGenerated(ctx, "sig-1")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.TryMarkUsed(ctx, "sig-1", "foo")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.MarkGenerated(ctx, "sig-1")
		require.NoError(t, err)
		assert.True(t, ok)

		order, err := s.GetOrderByID(ctx, "sig-1")
		require.NoError(t, err)
		assert.True(t, order.IsGenerated)
		assert.NotNil(t, order.GeneratedAt)

		ok, err = s.MarkGenerated(ctx, "sig-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestListPayments(t *testing.T) {
	if testDB == nil {
		t.Fatal("Test database not initialized")
	}
	ctx := context.Background()

	t.Run("pages newest first", func(t *testing.T) {
		s := initPGTestDB(t)

		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			input := buildTestPayment(fmt.Sprintf("sig-%d", i), "alice", 100_000_000, true)
			input.ObservedAt = base.Add(time.Duration(i) * time.Minute)
			_, err := s.InsertPaymentIfAbsent(ctx, input)
			require.NoError(t, err)
		}

		page, total, err := s.ListPayments(ctx, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "sig-4", page[0].Signature)
		assert.Equal(t, "sig-3", page[1].Signature)

		page, _, err = s.ListPayments(ctx, 2, 4)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "sig-0", page[0].Signature)
	})
}
