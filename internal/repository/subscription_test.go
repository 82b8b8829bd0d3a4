package repository

import (
	"context"
	"testing"
	"time"

	"tradepost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRepository_CancelActiveForUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")
	other := seedUser(t, db, "bystander")

	now := time.Now().UTC()
	mine := &models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		Amount:    9.99,
	}
	theirs := &models.Subscription{
		UserID:    other.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
	}
	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, theirs))

	require.NoError(t, repo.CancelActiveForUser(ctx, user.ID))

	subs, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.SubscriptionStatusCancelled, subs[0].Status)

	// The other user's subscription stays active.
	subs, err = repo.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.SubscriptionStatusActive, subs[0].Status)
}

func TestSubscriptionRepository_ListByUser_PreloadsInvoice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")

	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		Amount:    19.99,
	}
	require.NoError(t, repo.Create(ctx, sub))
	require.NoError(t, repo.CreateInvoice(ctx, &models.Invoice{
		UserID:         user.ID,
		SubscriptionID: sub.ID,
		InvoiceNumber:  "INV-1700000000000-1",
		Amount:         19.99,
	}))

	subs, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].Invoice)
	assert.Equal(t, "INV-1700000000000-1", subs[0].Invoice.InvoiceNumber)
}

func TestSubscriptionRepository_CreateInvoice_DuplicateNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")

	invoice := models.Invoice{
		UserID:         user.ID,
		SubscriptionID: 1,
		InvoiceNumber:  "INV-42-1",
	}
	require.NoError(t, repo.CreateInvoice(ctx, &invoice))

	dup := models.Invoice{UserID: user.ID, SubscriptionID: 2, InvoiceNumber: "INV-42-1"}
	err := repo.CreateInvoice(ctx, &dup)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestSubscriptionRepository_MarkInvoiceSent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")

	invoice := models.Invoice{UserID: user.ID, SubscriptionID: 1, InvoiceNumber: "INV-43-1"}
	require.NoError(t, repo.CreateInvoice(ctx, &invoice))

	sentAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkInvoiceSent(ctx, invoice.ID, sentAt))

	var got models.Invoice
	require.NoError(t, db.First(&got, invoice.ID).Error)
	require.NotNil(t, got.SentAt)
	assert.WithinDuration(t, sentAt, *got.SentAt, time.Second)

	err := repo.MarkInvoiceSent(ctx, 999, sentAt)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestSubscriptionRepository_MarkSubscriptionInvoiced(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")

	now := time.Now().UTC()
	sub := &models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
	}
	require.NoError(t, repo.Create(ctx, sub))
	require.NoError(t, repo.MarkSubscriptionInvoiced(ctx, sub.ID))

	var got models.Subscription
	require.NoError(t, db.First(&got, sub.ID).Error)
	assert.True(t, got.InvoiceSent)

	err := repo.MarkSubscriptionInvoiced(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestSubscriptionRepository_CountStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "subscriber")

	now := time.Now().UTC()
	active := &models.Subscription{
		UserID: user.ID, Status: models.SubscriptionStatusActive,
		StartDate: now, EndDate: now.AddDate(0, 1, 0), Amount: 10,
	}
	cancelled := &models.Subscription{
		UserID: user.ID, Status: models.SubscriptionStatusCancelled,
		StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, -1, 0), Amount: 10,
	}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, cancelled))
	// The status column default forces explicit cancellation after insert.
	require.NoError(t, db.Model(cancelled).Update("status", models.SubscriptionStatusCancelled).Error)

	require.NoError(t, repo.CreateInvoice(ctx, &models.Invoice{
		UserID: user.ID, SubscriptionID: active.ID, InvoiceNumber: "INV-1-1", Amount: 10,
	}))
	require.NoError(t, repo.CreateInvoice(ctx, &models.Invoice{
		UserID: user.ID, SubscriptionID: cancelled.ID, InvoiceNumber: "INV-2-1", Amount: 15,
	}))

	stats, err := repo.CountStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Active)
	assert.InDelta(t, 25.0, stats.Revenue, 0.001)
}
