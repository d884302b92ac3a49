package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/listing"
	"fintrack/internal/ports"
)

// fakeRepo is an in-memory repository scoped by owner, with switchable
// failures.
type fakeRepo struct {
	mu      sync.Mutex
	records []core.Transaction
	nextID  int
	failAll error
	listErr error
	calls   int
}

func (f *fakeRepo) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Transaction
	for _, tx := range f.records {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertTransaction(_ context.Context, userID string, d core.Draft) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll != nil {
		return core.Transaction{}, f.failAll
	}
	f.nextID++
	tx := core.Transaction{
		ID:          fmt.Sprintf("tx-%d", f.nextID),
		UserID:      userID,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	}
	f.records = append(f.records, tx)
	return tx, nil
}

func (f *fakeRepo) UpdateTransaction(_ context.Context, userID, id string, p core.Patch) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll != nil {
		return core.Transaction{}, f.failAll
	}
	for i, tx := range f.records {
		if tx.ID == id && tx.UserID == userID {
			f.records[i] = p.Apply(tx)
			return f.records[i], nil
		}
	}
	return core.Transaction{}, ports.ErrNotFound
}

func (f *fakeRepo) DeleteTransaction(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll != nil {
		return f.failAll
	}
	for i, tx := range f.records {
		if tx.ID == id && tx.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

func seeded() *fakeRepo {
	return &fakeRepo{records: []core.Transaction{
		{ID: "a", UserID: "u1", Kind: core.KindExpense, Amount: core.Cents(200), Category: "Food & Dining", Date: core.NewDate(2024, 1, 10)},
		{ID: "b", UserID: "u1", Kind: core.KindIncome, Amount: core.Cents(1000), Category: "Salary", Date: core.NewDate(2024, 1, 5)},
		{ID: "c", UserID: "u2", Kind: core.KindExpense, Amount: core.Cents(999), Category: "Travel", Date: core.NewDate(2024, 1, 7)},
	}}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func draft(date core.Date) core.Draft {
	return core.Draft{Kind: core.KindExpense, Amount: core.Cents(50), Category: "Transportation", Date: date}
}

func TestLoad(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	if s.Loaded() {
		t.Fatal("new store should not be loaded")
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected list %v", got)
	}

	repo.listErr = errors.New("network down")
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("failed load must keep previous list, got %v", got)
	}
}

func TestCreateInsertsAtHead(t *testing.T) {
	s := New(seeded(), "u1")
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	tx, err := s.Create(context.Background(), draft(core.NewDate(2023, 6, 1)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == "" || tx.UserID != "u1" || tx.CreatedAt.IsZero() {
		t.Fatalf("backend fields not assigned: %+v", tx)
	}
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{tx.ID, "a", "b"}) {
		t.Fatalf("expected new record at head regardless of date, got %v", got)
	}
}

func TestCreateDateOrdering(t *testing.T) {
	s := New(seeded(), "u1", WithOrdering(OrderDateDescending))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	older, _ := s.Create(context.Background(), draft(core.NewDate(2023, 6, 1)))
	sameDay, _ := s.Create(context.Background(), draft(core.NewDate(2024, 1, 10)))
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{sameDay.ID, "a", "b", older.ID}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestCreateFailureLeavesListUnchanged(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	_ = s.Load(context.Background())
	before := s.Transactions()

	repo.failAll = errors.New("insert failed")
	tx, err := s.Create(context.Background(), draft(core.NewDate(2024, 2, 1)))
	if err == nil {
		t.Fatal("expected error")
	}
	if tx != (core.Transaction{}) {
		t.Fatalf("expected zero transaction, got %+v", tx)
	}
	if !reflect.DeepEqual(s.Transactions(), before) {
		t.Fatal("list changed after failed create")
	}
}

func TestCreateValidatesBeforeCallingBackend(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	d := draft(core.NewDate(2024, 2, 1))
	d.Category = ""
	if _, err := s.Create(context.Background(), d); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("backend called %d times for an invalid draft", repo.calls)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	_ = s.Load(context.Background())

	amount := core.Cents(12345)
	tx, err := s.Update(context.Background(), "b", core.Patch{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if tx.Amount != amount || tx.Category != "Salary" {
		t.Fatalf("expected full record back, got %+v", tx)
	}
	list := s.Transactions()
	if got := ids(list); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("position changed: %v", got)
	}
	if list[1].Amount != amount {
		t.Fatalf("in-memory record not replaced: %+v", list[1])
	}

	repo.failAll = errors.New("update failed")
	other := core.Cents(1)
	if _, err := s.Update(context.Background(), "b", core.Patch{Amount: &other}); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := s.Get("b"); got.Amount != amount {
		t.Fatalf("failed update changed the list: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	_ = s.Load(context.Background())

	if err := s.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected list %v", got)
	}

	repo.failAll = errors.New("delete failed")
	if err := s.Delete(context.Background(), "b"); err == nil {
		t.Fatal("expected error")
	}
	if s.Len() != 1 {
		t.Fatal("record removed despite backend failure")
	}
}

func TestDeleteForeignRecordKeepsList(t *testing.T) {
	repo := seeded()
	s := New(repo, "u1")
	_ = s.Load(context.Background())

	// "c" belongs to u2: the backend reports not found for u1.
	err := s.Delete(context.Background(), "c")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := ids(s.Transactions()); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("list changed: %v", got)
	}
	if len(repo.records) != 3 {
		t.Fatal("foreign record was deleted")
	}
}

func TestStatsFollowMutations(t *testing.T) {
	s := New(seeded(), "u1")
	_ = s.Load(context.Background())
	if got := s.Stats().Balance.Cents; got != 800 {
		t.Fatalf("balance = %d, want 800", got)
	}
	if _, err := s.Create(context.Background(), draft(core.NewDate(2024, 1, 11))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := s.Stats().Balance.Cents; got != 750 {
		t.Fatalf("balance after create = %d, want 750", got)
	}
}

func TestDailySeriesAndQuery(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	s := New(seeded(), "u1", WithClock(func() time.Time { return now }))
	_ = s.Load(context.Background())

	series := s.DailySeries(7)
	if len(series) != 7 || series[6].Expense.Cents != 200 || series[1].Income.Cents != 1000 {
		t.Fatalf("unexpected series %+v", series)
	}
	got := s.Query(listing.Query{Kind: core.KindIncome})
	if !reflect.DeepEqual(ids(got), []string{"b"}) {
		t.Fatalf("unexpected query result %v", ids(got))
	}
}

func TestClear(t *testing.T) {
	s := New(seeded(), "u1")
	_ = s.Load(context.Background())
	s.Clear()
	if s.Len() != 0 || s.Loaded() {
		t.Fatal("clear did not reset the store")
	}
}

func TestParseOrdering(t *testing.T) {
	for in, want := range map[string]Ordering{"": OrderCreatedFirst, "created": OrderCreatedFirst, "date": OrderDateDescending} {
		got, err := ParseOrdering(in)
		if err != nil || got != want {
			t.Errorf("ParseOrdering(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOrdering("amount"); err == nil {
		t.Error("expected error")
	}
}
