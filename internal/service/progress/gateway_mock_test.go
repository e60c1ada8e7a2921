package progress

import (
	"context"
	"sync"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

var _ gateway = &gatewayMock{}

type gatewayMock struct {
	SessionFunc     func(ctx context.Context) (*domain.Session, error)
	CurrentUserFunc func(ctx context.Context) (*domain.AuthUser, error)
	QueryFunc       func(ctx context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error)
	InsertFunc      func(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error)
	UpdateFunc      func(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error)
	DeleteFunc      func(ctx context.Context, table domain.Table, id string) error
	SubscribeFunc   func(ctx context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error)

	calls struct {
		Session     []struct{}
		CurrentUser []struct{}
		Query       []struct {
			Table  domain.Table
			Filter domain.Filter
		}
		Insert []struct {
			Table domain.Table
			Row   domain.Row
		}
		Update []struct {
			Table domain.Table
			ID    string
			Patch domain.Row
		}
		Delete []struct {
			Table domain.Table
			ID    string
		}
		Subscribe []struct {
			Tables []domain.Table
		}
	}
	lockSession     sync.RWMutex
	lockCurrentUser sync.RWMutex
	lockQuery       sync.RWMutex
	lockInsert      sync.RWMutex
	lockUpdate      sync.RWMutex
	lockDelete      sync.RWMutex
	lockSubscribe   sync.RWMutex
}

func (mock *gatewayMock) Session(ctx context.Context) (*domain.Session, error) {
	if mock.SessionFunc == nil {
		panic("gatewayMock.SessionFunc: method is nil but gateway.Session was just called")
	}
	mock.lockSession.Lock()
	mock.calls.Session = append(mock.calls.Session, struct{}{})
	mock.lockSession.Unlock()
	return mock.SessionFunc(ctx)
}

func (mock *gatewayMock) SessionCalls() []struct{} {
	mock.lockSession.RLock()
	defer mock.lockSession.RUnlock()
	return mock.calls.Session
}

func (mock *gatewayMock) CurrentUser(ctx context.Context) (*domain.AuthUser, error) {
	if mock.CurrentUserFunc == nil {
		panic("gatewayMock.CurrentUserFunc: method is nil but gateway.CurrentUser was just called")
	}
	mock.lockCurrentUser.Lock()
	mock.calls.CurrentUser = append(mock.calls.CurrentUser, struct{}{})
	mock.lockCurrentUser.Unlock()
	return mock.CurrentUserFunc(ctx)
}

func (mock *gatewayMock) Query(ctx context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error) {
	if mock.QueryFunc == nil {
		panic("gatewayMock.QueryFunc: method is nil but gateway.Query was just called")
	}
	callInfo := struct {
		Table  domain.Table
		Filter domain.Filter
	}{Table: table, Filter: filter}
	mock.lockQuery.Lock()
	mock.calls.Query = append(mock.calls.Query, callInfo)
	mock.lockQuery.Unlock()
	return mock.QueryFunc(ctx, table, filter)
}

func (mock *gatewayMock) QueryCalls() []struct {
	Table  domain.Table
	Filter domain.Filter
} {
	mock.lockQuery.RLock()
	defer mock.lockQuery.RUnlock()
	return mock.calls.Query
}

func (mock *gatewayMock) Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	if mock.InsertFunc == nil {
		panic("gatewayMock.InsertFunc: method is nil but gateway.Insert was just called")
	}
	callInfo := struct {
		Table domain.Table
		Row   domain.Row
	}{Table: table, Row: row}
	mock.lockInsert.Lock()
	mock.calls.Insert = append(mock.calls.Insert, callInfo)
	mock.lockInsert.Unlock()
	return mock.InsertFunc(ctx, table, row)
}

func (mock *gatewayMock) InsertCalls() []struct {
	Table domain.Table
	Row   domain.Row
} {
	mock.lockInsert.RLock()
	defer mock.lockInsert.RUnlock()
	return mock.calls.Insert
}

func (mock *gatewayMock) Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	if mock.UpdateFunc == nil {
		panic("gatewayMock.UpdateFunc: method is nil but gateway.Update was just called")
	}
	callInfo := struct {
		Table domain.Table
		ID    string
		Patch domain.Row
	}{Table: table, ID: id, Patch: patch}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, callInfo)
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, table, id, patch)
}

func (mock *gatewayMock) UpdateCalls() []struct {
	Table domain.Table
	ID    string
	Patch domain.Row
} {
	mock.lockUpdate.RLock()
	defer mock.lockUpdate.RUnlock()
	return mock.calls.Update
}

func (mock *gatewayMock) Delete(ctx context.Context, table domain.Table, id string) error {
	if mock.DeleteFunc == nil {
		panic("gatewayMock.DeleteFunc: method is nil but gateway.Delete was just called")
	}
	callInfo := struct {
		Table domain.Table
		ID    string
	}{Table: table, ID: id}
	mock.lockDelete.Lock()
	mock.calls.Delete = append(mock.calls.Delete, callInfo)
	mock.lockDelete.Unlock()
	return mock.DeleteFunc(ctx, table, id)
}

func (mock *gatewayMock) DeleteCalls() []struct {
	Table domain.Table
	ID    string
} {
	mock.lockDelete.RLock()
	defer mock.lockDelete.RUnlock()
	return mock.calls.Delete
}

func (mock *gatewayMock) Subscribe(ctx context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error) {
	if mock.SubscribeFunc == nil {
		panic("gatewayMock.SubscribeFunc: method is nil but gateway.Subscribe was just called")
	}
	callInfo := struct {
		Tables []domain.Table
	}{Tables: tables}
	mock.lockSubscribe.Lock()
	mock.calls.Subscribe = append(mock.calls.Subscribe, callInfo)
	mock.lockSubscribe.Unlock()
	return mock.SubscribeFunc(ctx, tables, onChange)
}

func (mock *gatewayMock) SubscribeCalls() []struct {
	Tables []domain.Table
} {
	mock.lockSubscribe.RLock()
	defer mock.lockSubscribe.RUnlock()
	return mock.calls.Subscribe
}
