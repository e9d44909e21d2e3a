package memory

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/tenx-bank-ledger/internal/domain/account"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/domain/outbox"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

type unitOfWork struct {
	l *Ledger

	held        []int64 // ascending
	holdCounter bool

	created      map[int64]*account.Account
	createdOrder []int64
	balances     map[int64]decimal.Decimal
	cleared      map[int64]bool

	txBase    int64
	claimed   int64
	txCleared bool
	records   []*ledger.Record
	requests  map[string]struct{}

	messages []*outbox.Message
}

func newUnitOfWork(l *Ledger) *unitOfWork {
	return &unitOfWork{
		l:        l,
		created:  make(map[int64]*account.Account),
		balances: make(map[int64]decimal.Decimal),
		cleared:  make(map[int64]bool),
		requests: make(map[string]struct{}),
	}
}

func (u *unitOfWork) Accounts() account.Repository    { return &accountStore{l: u.l, uow: u} }
func (u *unitOfWork) Transactions() ledger.Repository { return &transactionLog{uow: u} }
func (u *unitOfWork) Outbox() outbox.Repository       { return &stagedOutbox{uow: u} }

func (u *unitOfWork) release() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.l.unlock(u.held[i])
	}
	u.held = nil
	if u.holdCounter {
		<-u.l.counter
		u.holdCounter = false
	}
}

func (u *unitOfWork) isHeld(id int64) bool {
	_, found := slices.BinarySearch(u.held, id)
	return found
}

func (u *unitOfWork) lock(ctx context.Context, ids []int64) error {
	if u.holdCounter {
		return errCounterFirst
	}
	for _, id := range ids {
		if u.isHeld(id) {
			continue
		}
		if n := len(u.held); n > 0 && id < u.held[n-1] {
			return ledger.ErrLockOrder{Requested: id, Held: u.held[n-1]}
		}
		if err := acquire(ctx, u.l.retainLock(id)); err != nil {
			u.l.dropLock(id)
			return ledger.Unavailable("lock accounts", err)
		}
		u.held = append(u.held, id)
	}
	return nil
}

func (u *unitOfWork) lockCounter(ctx context.Context) error {
	if u.holdCounter {
		return nil
	}
	if err := acquire(ctx, u.l.counter); err != nil {
		return ledger.Unavailable("claim transaction id", err)
	}
	u.holdCounter = true

	u.l.mu.RLock()
	u.txBase = u.l.lastTxID
	u.l.mu.RUnlock()
	return nil
}

// lookup resolves an account as this unit of work sees it. Callers hold l.mu.
func (u *unitOfWork) lookup(id int64) (*account.Account, bool) {
	var acc *account.Account
	if staged, ok := u.created[id]; ok {
		clone := *staged
		acc = &clone
	} else if !u.cleared[id] {
		committed, ok := u.l.committedAccount(id)
		if !ok {
			return nil, false
		}
		acc = committed
	} else {
		return nil, false
	}

	if balance, ok := u.balances[id]; ok {
		acc.Balance = balance
	}
	return acc, true
}

func (u *unitOfWork) commit(ctx context.Context) error {
	l := u.l
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range u.createdOrder {
		if _, exists := l.accounts[id]; exists && !u.cleared[id] {
			return account.ErrAccountAlreadyExists{AccountID: id}
		}
	}
	for id := range u.balances {
		if _, ok := u.created[id]; ok {
			continue
		}
		if _, ok := l.accounts[id]; !ok || u.cleared[id] {
			return account.ErrAccountNotFound{AccountID: id}
		}
	}

	if !u.txCleared {
		for requestID := range u.requests {
			if _, committed := l.requestIDs[requestID]; committed {
				return ledger.ErrDuplicateRequest{RequestID: requestID}
			}
		}
	}

	for _, msg := range u.messages {
		if err := l.outbox.Create(ctx, msg); err != nil {
			return ledger.Unavailable("enqueue outbox message", err)
		}
	}

	if len(u.cleared) > 0 {
		for id := range u.cleared {
			delete(l.accounts, id)
		}
		l.order = slices.DeleteFunc(l.order, func(id int64) bool { return u.cleared[id] })
	}

	for _, id := range u.createdOrder {
		acc := *u.created[id]
		l.accounts[id] = &acc
		l.order = append(l.order, id)
	}

	for id, balance := range u.balances {
		l.accounts[id].Balance = balance
	}

	if u.txCleared {
		l.transactions = nil
		l.requestIDs = make(map[string]struct{})
	}
	l.transactions = append(l.transactions, u.records...)
	for requestID := range u.requests {
		l.requestIDs[requestID] = struct{}{}
	}
	if u.holdCounter {
		l.lastTxID = u.txBase + u.claimed
	}

	return nil
}

// accountStore serves committed reads when uow is nil
type accountStore struct {
	l   *Ledger
	uow *unitOfWork
}

func (s *accountStore) get(id int64) (*account.Account, bool) {
	if s.uow != nil {
		return s.uow.lookup(id)
	}
	return s.l.committedAccount(id)
}

func (s *accountStore) Exists(_ context.Context, id int64) (bool, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()

	_, ok := s.get(id)
	return ok, nil
}

func (s *accountStore) Create(_ context.Context, acc *account.Account) error {
	if s.uow == nil {
		return errReadOnly
	}

	s.l.mu.RLock()
	_, exists := s.get(acc.ID)
	s.l.mu.RUnlock()
	if exists {
		return account.ErrAccountAlreadyExists{AccountID: acc.ID}
	}

	clone := *acc
	s.uow.created[acc.ID] = &clone
	s.uow.createdOrder = append(s.uow.createdOrder, acc.ID)
	delete(s.uow.balances, acc.ID)
	return nil
}

func (s *accountStore) GetByID(_ context.Context, id int64) (*account.Account, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()

	acc, ok := s.get(id)
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc, nil
}

func (s *accountStore) GetAll(_ context.Context) ([]*account.Account, error) {
	s.l.mu.RLock()
	defer s.l.mu.RUnlock()

	accounts := make([]*account.Account, 0, len(s.l.order))
	for _, id := range s.l.order {
		if s.uow != nil {
			if _, staged := s.uow.created[id]; staged || s.uow.cleared[id] {
				continue
			}
		}
		if acc, ok := s.get(id); ok {
			accounts = append(accounts, acc)
		}
	}

	if s.uow != nil {
		for _, id := range s.uow.createdOrder {
			acc, _ := s.uow.lookup(id)
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (s *accountStore) LockForUpdate(ctx context.Context, ids ...int64) (map[int64]*account.Account, error) {
	if s.uow == nil {
		return nil, errReadOnly
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	if err := s.uow.lock(ctx, sorted); err != nil {
		return nil, err
	}

	s.l.mu.RLock()
	defer s.l.mu.RUnlock()

	locked := make(map[int64]*account.Account, len(sorted))
	for _, id := range sorted {
		if acc, ok := s.uow.lookup(id); ok {
			locked[id] = acc
		}
	}
	return locked, nil
}

func (s *accountStore) UpdateBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	if s.uow == nil {
		return errReadOnly
	}
	if _, created := s.uow.created[id]; !created && !s.uow.isHeld(id) {
		return errNotLocked
	}

	s.l.mu.RLock()
	_, ok := s.uow.lookup(id)
	s.l.mu.RUnlock()
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}

	s.uow.balances[id] = balance
	return nil
}

// DeleteAll locks every existing account, then stages their removal
func (s *accountStore) DeleteAll(ctx context.Context) (int64, error) {
	if s.uow == nil {
		return 0, errReadOnly
	}

	s.l.mu.RLock()
	ids := slices.Clone(s.l.order)
	s.l.mu.RUnlock()
	slices.Sort(ids)

	if err := s.uow.lock(ctx, ids); err != nil {
		return 0, err
	}

	s.l.mu.RLock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.l.accounts[id]; ok && !s.uow.cleared[id] {
			deleted++
		}
		s.uow.cleared[id] = true
	}
	s.l.mu.RUnlock()

	deleted += int64(len(s.uow.createdOrder))
	s.uow.created = make(map[int64]*account.Account)
	s.uow.createdOrder = nil
	s.uow.balances = make(map[int64]decimal.Decimal)

	return deleted, nil
}

// transactionLog serves the unit of work's transaction writes; nil uow rejects them
type transactionLog struct {
	uow *unitOfWork
}

func (t *transactionLog) NextTransactionID(ctx context.Context) (int64, error) {
	if t.uow == nil {
		return 0, errReadOnly
	}
	if err := t.uow.lockCounter(ctx); err != nil {
		return 0, err
	}
	t.uow.claimed++
	return t.uow.txBase + t.uow.claimed, nil
}

func (t *transactionLog) Append(_ context.Context, record *ledger.Record) error {
	if t.uow == nil {
		return errReadOnly
	}

	if record.RequestID != "" {
		if t.seen(record.RequestID) {
			return ledger.ErrDuplicateRequest{RequestID: record.RequestID}
		}
		t.uow.requests[record.RequestID] = struct{}{}
	}

	clone := *record
	t.uow.records = append(t.uow.records, &clone)
	return nil
}

// seen reports whether requestID is staged here or already committed
func (t *transactionLog) seen(requestID string) bool {
	if _, staged := t.uow.requests[requestID]; staged {
		return true
	}
	if t.uow.txCleared {
		return false
	}

	t.uow.l.mu.RLock()
	defer t.uow.l.mu.RUnlock()
	_, committed := t.uow.l.requestIDs[requestID]
	return committed
}

// DeleteAll holds the counter lock so in-flight transfers commit first and
// are cleared with the rest. Ids keep counting from the last one claimed.
func (t *transactionLog) DeleteAll(ctx context.Context) (int64, error) {
	if t.uow == nil {
		return 0, errReadOnly
	}
	if err := t.uow.lockCounter(ctx); err != nil {
		return 0, err
	}

	t.uow.l.mu.RLock()
	deleted := int64(len(t.uow.records))
	if !t.uow.txCleared {
		deleted += int64(len(t.uow.l.transactions))
	}
	t.uow.l.mu.RUnlock()

	t.uow.txCleared = true
	t.uow.records = nil
	t.uow.requests = make(map[string]struct{})
	return deleted, nil
}

// stagedOutbox defers Create until commit; other calls go to the ledger's outbox
type stagedOutbox struct {
	uow *unitOfWork
}

func (o *stagedOutbox) Create(_ context.Context, message *outbox.Message) error {
	o.uow.messages = append(o.uow.messages, message)
	return nil
}

func (o *stagedOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return o.uow.l.outbox.GetPending(ctx, limit)
}

func (o *stagedOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return o.uow.l.outbox.UpdateStatus(ctx, id, status)
}

func (o *stagedOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	return o.uow.l.outbox.IncrementAttempts(ctx, id)
}
