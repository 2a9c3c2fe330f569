package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardledger/internal/services/limit"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResetter struct {
	mock.Mock
}

func (m *MockResetter) ResetDailyLimits(ctx context.Context) (limit.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(limit.SweepResult), args.Error(1)
}

func (m *MockResetter) ResetMonthlyLimits(ctx context.Context) (limit.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(limit.SweepResult), args.Error(1)
}

var validConfig = Config{DailySpec: "0 0 0 * * *", MonthlySpec: "0 10 0 1 * *"}

func TestNew_InvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"daily", Config{DailySpec: "not a spec", MonthlySpec: validConfig.MonthlySpec}},
		{"monthly", Config{DailySpec: validConfig.DailySpec, MonthlySpec: "0 0 0 32 * *"}},
		{"five fields", Config{DailySpec: "0 0 * * *", MonthlySpec: validConfig.MonthlySpec}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(new(MockResetter), tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestRunDaily_LogsSummary(t *testing.T) {
	resetter := new(MockResetter)
	log, hook := test.NewNullLogger()
	s, err := New(resetter, validConfig, log)
	require.NoError(t, err)

	resetter.On("ResetDailyLimits", mock.Anything).Return(limit.SweepResult{Scanned: 3, Reset: 2}, nil).Once()

	res, err := s.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reset)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, "daily", last.Data["window"])
	assert.Equal(t, 3, last.Data["scanned"])
	resetter.AssertExpectations(t)
}

func TestRunMonthly_ReportsFailures(t *testing.T) {
	resetter := new(MockResetter)
	log, hook := test.NewNullLogger()
	s, err := New(resetter, validConfig, log)
	require.NoError(t, err)

	boom := errors.New("card 1: lock timeout")
	resetter.On("ResetMonthlyLimits", mock.Anything).Return(limit.SweepResult{Scanned: 4, Reset: 3, Failed: 1}, boom).Once()

	res, err := s.RunMonthly(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "monthly", hook.LastEntry().Data["window"])
}

func TestRun_BoundedByTimeout(t *testing.T) {
	resetter := new(MockResetter)
	s, err := New(resetter, Config{DailySpec: validConfig.DailySpec, MonthlySpec: validConfig.MonthlySpec, SweepTimeout: time.Minute}, nil)
	require.NoError(t, err)

	resetter.On("ResetDailyLimits", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Minute
	})).Return(limit.SweepResult{}, nil).Once()

	_, err = s.RunDaily(context.Background())
	require.NoError(t, err)
	resetter.AssertExpectations(t)
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	resetter := new(MockResetter)
	log, _ := test.NewNullLogger()
	s, err := New(resetter, Config{DailySpec: "@every 1s", MonthlySpec: validConfig.MonthlySpec}, log)
	require.NoError(t, err)

	fired := make(chan struct{}, 4)
	resetter.On("ResetDailyLimits", mock.Anything).
		Run(func(mock.Arguments) { fired <- struct{}{} }).
		Return(limit.SweepResult{}, nil)

	s.Start()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("daily sweep did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
