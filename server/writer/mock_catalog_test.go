package writer

import (
	"context"

	"github.com/gear6io/hivewriter/server/catalog"
	"github.com/stretchr/testify/mock"
)

type mockCatalog struct {
	mock.Mock
}

var _ catalog.Client = (*mockCatalog)(nil)

func (m *mockCatalog) CreateDatabase(ctx context.Context, db catalog.Database) error {
	return m.Called(ctx, db).Error(0)
}

func (m *mockCatalog) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	args := m.Called(ctx, name)
	db, _ := args.Get(0).(*catalog.Database)
	return db, args.Error(1)
}

func (m *mockCatalog) CreateTable(ctx context.Context, def catalog.TableDefinition) (*catalog.TableHandle, error) {
	args := m.Called(ctx, def)
	h, _ := args.Get(0).(*catalog.TableHandle)
	return h, args.Error(1)
}

func (m *mockCatalog) GetTable(ctx context.Context, database, table string) (*catalog.TableHandle, error) {
	args := m.Called(ctx, database, table)
	h, _ := args.Get(0).(*catalog.TableHandle)
	return h, args.Error(1)
}

func (m *mockCatalog) DropTable(ctx context.Context, database, table string) error {
	return m.Called(ctx, database, table).Error(0)
}

func (m *mockCatalog) ListPartitions(ctx context.Context, database, table string, limit int) ([]catalog.Partition, error) {
	args := m.Called(ctx, database, table, limit)
	ps, _ := args.Get(0).([]catalog.Partition)
	return ps, args.Error(1)
}

func (m *mockCatalog) GetPartition(ctx context.Context, database, table string, values []string) (*catalog.Partition, error) {
	args := m.Called(ctx, database, table, values)
	p, _ := args.Get(0).(*catalog.Partition)
	return p, args.Error(1)
}

func (m *mockCatalog) AddPartition(ctx context.Context, database, table string, partition catalog.Partition) error {
	return m.Called(ctx, database, table, partition).Error(0)
}

func (m *mockCatalog) Close() error {
	return m.Called().Error(0)
}
