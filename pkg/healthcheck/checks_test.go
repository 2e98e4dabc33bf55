package healthcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestComposite(t *testing.T) {
	okCheck := func(context.Context) error { return nil }
	failErr := errors.New("недоступно")
	failCheck := func(context.Context) error { return failErr }

	tests := []struct {
		name    string
		checks  []Check
		wantErr error
	}{
		{name: "без проверок", checks: nil},
		{name: "все проверки успешны", checks: []Check{okCheck, okCheck}},
		{name: "одна проверка падает", checks: []Check{okCheck, failCheck}, wantErr: failErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Composite(tt.checks...)(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestComposite_StopsOnFirstError(t *testing.T) {
	called := false
	check := Composite(
		func(context.Context) error { return errors.New("первая") },
		func(context.Context) error { called = true; return nil },
	)

	assert.Error(t, check(context.Background()))
	assert.False(t, called)
}

func TestCheckPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = CheckPostgres(context.Background(), gormDB)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping")

	mock.ExpectPing()
	assert.NoError(t, CheckPostgres(context.Background(), gormDB))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	assert.NoError(t, CheckRedis(context.Background(), rdb))

	mr.Close()
	assert.Error(t, CheckRedis(context.Background(), rdb))
}

func TestCheckKafka_NoBrokers(t *testing.T) {
	assert.Error(t, CheckKafka(context.Background(), nil))
}
