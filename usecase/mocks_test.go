package usecase_test

import (
	"context"
	"time"

	"kayzen-ingest/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockTableStore struct {
	mock.Mock
}

func (m *MockTableStore) Exists(ctx context.Context, ref model.TableRef) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockTableStore) CreateFromSample(ctx context.Context, ref model.TableRef, sample model.Campaign, clusterField string) error {
	args := m.Called(ctx, ref, sample, clusterField)
	return args.Error(0)
}

func (m *MockTableStore) DeleteByIDs(ctx context.Context, ref model.TableRef, ids []string) error {
	args := m.Called(ctx, ref, ids)
	return args.Error(0)
}

func (m *MockTableStore) Append(ctx context.Context, ref model.TableRef, rows []model.Campaign) error {
	args := m.Called(ctx, ref, rows)
	return args.Error(0)
}

type MockKayzenAuth struct {
	mock.Mock
}

func (m *MockKayzenAuth) GetAccessToken(ctx context.Context, creds model.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

type MockCampaignSource struct {
	mock.Mock
}

func (m *MockCampaignSource) FetchAllCampaigns(ctx context.Context, accessToken string) ([]model.Campaign, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Campaign), args.Error(1)
}

type MockCampaignLoader struct {
	mock.Mock
}

func (m *MockCampaignLoader) Load(ctx context.Context, campaigns []model.Campaign, ref model.TableRef) error {
	args := m.Called(ctx, campaigns, ref)
	return args.Error(0)
}

type MockRunLock struct {
	mock.Mock
	Released int
}

func (m *MockRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	release := func(context.Context) error {
		m.Released++
		return nil
	}
	return release, args.Bool(0), args.Error(1)
}

type MockRunHistory struct {
	mock.Mock
}

func (m *MockRunHistory) StartRun(ctx context.Context, run *model.IngestionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunHistory) FinishRun(ctx context.Context, run *model.IngestionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunHistory) LatestRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IngestionRun), args.Error(1)
}

type MockRunNotifier struct {
	mock.Mock
}

func (m *MockRunNotifier) NotifyRun(ctx context.Context, run *model.IngestionRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func campaign(id model.Value, name string) model.Campaign {
	return model.Campaign{"id": id, "name": model.String(name)}
}
