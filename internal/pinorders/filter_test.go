package pinorders

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureOrders(t *testing.T) []Order {
	t.Helper()
	orders, err := LoadFixtures()
	require.NoError(t, err)
	require.Len(t, orders, 3)
	return orders
}

func orderIDs(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func parse(t *testing.T, query string) Filter {
	t.Helper()
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	f, errs := ParseFilter(values)
	require.Empty(t, errs)
	return f
}

func TestFilterCriteria(t *testing.T) {
	orders := fixtureOrders(t)
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"no criteria", "", []string{"order-1", "order-2", "order-3"}},
		{"order id ignores case", "orderId=ORDER-2", []string{"order-2"}},
		{"customer id substring", "customerId=2", []string{"order-3"}},
		{"product ignores case", "product=game", []string{"order-1", "order-3"}},
		{"status", "status=pending", []string{"order-2"}},
		{"status all", "status=all", []string{"order-1", "order-2", "order-3"}},
		{"amount range", "amountMin=20&amountMax=30", []string{"order-2"}},
		{"amount min inclusive", "amountMin=50", []string{"order-1"}},
		{"date from", "dateFrom=2024-06-02", []string{"order-2", "order-3"}},
		{"date to includes whole day", "dateTo=2024-06-02", []string{"order-1", "order-3"}},
		{"date window", "dateFrom=2024-06-02&dateTo=2024-06-02", []string{"order-3"}},
		{"criteria combine", "product=card&status=delivered&amountMax=20", []string{"order-3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := parse(t, tc.query)
			assert.Equal(t, tc.want, orderIDs(f.Apply(orders)))
		})
	}
}

func TestFilterDateToEndOfDayBoundary(t *testing.T) {
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	f := Filter{DateTo: &day}
	assert.True(t, f.Matches(Order{CreatedAt: time.Date(2024, 6, 2, 23, 59, 59, int(999*time.Millisecond), time.UTC)}))
	assert.False(t, f.Matches(Order{CreatedAt: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)}))
}

func TestParseFilterReportsMalformedValues(t *testing.T) {
	values := url.Values{
		"status":    {"lost"},
		"amountMin": {"abc"},
		"amountMax": {"-1"},
		"dateFrom":  {"06/01/2024"},
	}
	f, errs := ParseFilter(values)
	assert.Equal(t, StatusAll, f.Status)
	assert.Nil(t, f.AmountMin)
	assert.Nil(t, f.AmountMax)
	assert.Nil(t, f.DateFrom)
	assert.False(t, f.Active())
	assert.Contains(t, errs, "status")
	assert.Contains(t, errs, "amountMin")
	assert.Contains(t, errs, "amountMax")
	assert.Contains(t, errs, "dateFrom")
}

func TestFilterValuesRoundTrip(t *testing.T) {
	f := parse(t, "orderId=o&status=failed&amountMin=10&dateTo=2024-06-30")
	assert.True(t, f.Active())
	again, errs := ParseFilter(f.Values())
	assert.Empty(t, errs)
	assert.Equal(t, f, again)
	assert.Empty(t, parse(t, "status=all").Values())
}

func TestServiceFilterCounts(t *testing.T) {
	svc := NewService(NewMemoryRepository(fixtureOrders(t)))

	result, err := svc.Filter(context.Background(), parse(t, "status=delivered"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched())
	assert.Equal(t, 3, result.Total)

	byCustomer, err := svc.ListByCustomer(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"order-1", "order-2"}, orderIDs(byCustomer))

	none, err := svc.ListByCustomer(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPGRepositoryListByCustomer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2024, 6, 2, 9, 15, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM pin_orders WHERE customer_id").
		WithArgs("2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_id", "pin_code", "product", "amount", "status", "created_at"}).
			AddRow("order-3", "2", "3456-7890-1234", "Game Card 10$", 10.0, "delivered", created))

	orders, err := NewPGRepository(mock).ListByCustomer(context.Background(), "2")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, created, orders[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
