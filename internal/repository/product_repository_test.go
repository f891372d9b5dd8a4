package repository

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/model"
)

var productCols = []string{"id", "name", "description", "price", "stock", "category", "owner_id", "created_at", "updated_at"}

func fixedRepo(t *testing.T) (*ProductRepo, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock := newMock(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewProductRepo(db)
	repo.now = func() time.Time { return now }
	return repo, mock, now
}

func TestProductRepo_Create_NoOwner(t *testing.T) {
	repo, mock, now := fixedRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Widget", "", int64(500), int64(3), "tools", nil, now, now).
		WillReturnResult(sqlmock.NewResult(11, 1))

	p := &model.Product{Name: "Widget", Price: 500, Stock: 3, Category: "tools"}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, uint64(11), p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_List_FilterAndPage(t *testing.T) {
	repo, mock, now := fixedRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE category = ?")).
		WithArgs("books").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE category = ? ORDER BY id ASC LIMIT ? OFFSET ?")).
		WithArgs("books", 10, 20).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(21, "Go", "book", 3000, 1, "books", 2, now, now))

	items, total, err := repo.List(context.Background(), ProductQuery{Category: "books", Page: 2, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(2), items[0].OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_List_NoFilter(t *testing.T) {
	repo, mock, _ := fixedRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY id ASC LIMIT ? OFFSET ?")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(productCols))

	items, total, err := repo.List(context.Background(), ProductQuery{Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestProductRepo_List_HugePageSaturatesOffset(t *testing.T) {
	repo, mock, _ := fixedRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY id ASC LIMIT ? OFFSET ?")).
		WithArgs(100, math.MaxInt).
		WillReturnRows(sqlmock.NewRows(productCols))

	items, total, err := repo.List(context.Background(), ProductQuery{Page: math.MaxInt/100 + 1, Size: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Update_Authorized(t *testing.T) {
	repo, mock, now := fixedRepo(t)
	created := now.Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(5, "Old", "", 100, 1, "misc", 9, created, created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WithArgs("New", "d", int64(200), int64(2), "tools", now, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen model.Product
	p, err := repo.Update(context.Background(), 5,
		model.ProductFields{Name: "New", Description: "d", Price: 200, Stock: 2, Category: "tools"},
		func(cur model.Product) error { seen = cur; return nil })
	require.NoError(t, err)
	assert.Equal(t, "Old", seen.Name)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, uint64(9), p.OwnerID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Update_Denied(t *testing.T) {
	repo, mock, now := fixedRepo(t)
	denied := errors.New("denied")
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(5, "Old", "", 100, 1, "misc", 9, now, now))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 5, model.ProductFields{Name: "x", Category: "y"},
		func(model.Product) error { return denied })
	assert.ErrorIs(t, err, denied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Delete(t *testing.T) {
	repo, mock, now := fixedRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(4, "Gone", "", 100, 1, "misc", nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = ?")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.Delete(context.Background(), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "Gone", p.Name)
	assert.False(t, p.HasOwner())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Delete_NotFound(t *testing.T) {
	repo, mock, _ := fixedRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 99, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
