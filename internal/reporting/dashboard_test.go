package reporting

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) (*Client, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewWithDB(db), mock, func() { db.Close() }
}

func TestGetDashboard_AssemblesCountsTierAndChannelBreakdown(t *testing.T) {
	client, mock, cleanup := setupTestClient(t)
	defer cleanup()

	mock.ExpectQuery("(?s)SELECT COUNT.*FROM ASSIGNMENTS").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "converted"}).AddRow(100, 25))
	mock.ExpectQuery("(?s)SELECT TIER, COUNT.*FROM ASSIGNMENTS").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"tier", "count"}).
			AddRow("hot", 20).
			AddRow("warm", 50))
	mock.ExpectQuery("(?s)SELECT CHANNEL.*FROM ACTIVITIES").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"channel", "sent", "replied", "booked"}).
			AddRow("email", 300, 40, 20))

	svc := New(client)
	dash, err := svc.GetDashboard(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, int64(100), dash.LeadsAssigned)
	assert.Equal(t, int64(25), dash.LeadsConverted)
	assert.Equal(t, 0.25, dash.ConversionRate)
	require.Len(t, dash.TierBreakdown, 2)
	require.Len(t, dash.ChannelMetrics, 1)
	assert.Equal(t, "email", dash.ChannelMetrics[0].Channel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDashboard_ZeroAssignmentsYieldsZeroConversionRate(t *testing.T) {
	client, mock, cleanup := setupTestClient(t)
	defer cleanup()

	mock.ExpectQuery("(?s)SELECT COUNT.*FROM ASSIGNMENTS").
		WithArgs("t2").
		WillReturnRows(sqlmock.NewRows([]string{"count", "converted"}).AddRow(0, 0))
	mock.ExpectQuery("(?s)SELECT TIER, COUNT.*FROM ASSIGNMENTS").
		WithArgs("t2").
		WillReturnRows(sqlmock.NewRows([]string{"tier", "count"}))
	mock.ExpectQuery("(?s)SELECT CHANNEL.*FROM ACTIVITIES").
		WithArgs("t2").
		WillReturnRows(sqlmock.NewRows([]string{"channel", "sent", "replied", "booked"}))

	svc := New(client)
	dash, err := svc.GetDashboard(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, 0.0, dash.ConversionRate)
}
