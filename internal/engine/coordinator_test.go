package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/hearthledger/internal/cache"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/Veraticus/hearthledger/internal/service"
	"github.com/Veraticus/hearthledger/internal/session"
	"github.com/Veraticus/hearthledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *cache.Store
	budget    *testutil.FakeCollection
	projected *testutil.FakeCollection
	importer  *testutil.FakeImporter
	sess      *session.Session
	coord     *Coordinator
	probes    *[]cache.Key
}

func defaultConfig() testutil.StaticConfig {
	return testutil.StaticConfig{
		Cats:     []string{"Housing", "Groceries", "Fun"},
		Crits:    []string{"Essential", "Nice to Have", "Optional"},
		Defaults: map[string]string{"josh": "Amex", "joint": "Shared Checking"},
		Members:  []string{"josh", "anna"},
	}
}

func newFixture(t *testing.T, cfg testutil.StaticConfig) *fixture {
	t.Helper()
	store := cache.NewStore()
	budget := &testutil.FakeCollection{Source: model.SourceBudget}
	projected := &testutil.FakeCollection{Source: model.SourceProjected}
	importer := &testutil.FakeImporter{}

	sess := session.New(store, budget, projected)
	t.Cleanup(sess.Close)

	var probes []cache.Key
	store.Subscribe(func(k cache.Key) { probes = append(probes, k) })

	coord := New(budget, projected, importer, cfg, cache.NewInvalidator(store, cfg.Members), sess)
	return &fixture{
		store:     store,
		budget:    budget,
		projected: projected,
		importer:  importer,
		sess:      sess,
		coord:     coord,
		probes:    &probes,
	}
}

func (f *fixture) probeStrings() []string {
	out := make([]string, len(*f.probes))
	for i, k := range *f.probes {
		out[i] = k.String()
	}
	return out
}

func draft(name, account, category string) model.Transaction {
	return model.Transaction{
		Account:         account,
		StatementPeriod: "NOVEMBER2025",
		Name:            name,
		Category:        category,
		Amount:          decimal.NewFromInt(-50),
		Date:            time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC),
		Source:          model.SourceBudget,
	}
}

func TestCreateReplacesTempID(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	d := draft("Coffee", "josh", "Fun")
	d.Source = model.SourceProjected
	require.NoError(t, f.coord.Create(context.Background(), d))

	rows := f.sess.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "srv-1", rows[0].ID)
	assert.False(t, rows[0].IsNew)
	assert.Equal(t, model.SourceProjected, rows[0].Source, "routing flag survives persistence")
	assert.Equal(t, session.RowPersisted, f.sess.State("srv-1"))

	for _, row := range rows {
		assert.False(t, row.IsTemp(), "no temporary id may remain after a successful create")
	}

	created := f.projected.Created()
	require.Len(t, created, 1, "projected drafts go to the projected collection")
	assert.Empty(t, f.budget.Created())
}

func TestCreateAppliesDefaultPaymentMethod(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	require.NoError(t, f.coord.Create(context.Background(), draft("Coffee", "josh", "Fun")))

	created := f.budget.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "Amex", created[0].PaymentMethod)
}

func TestCreateValidationFailurePreservesDraft(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	d := draft("", "josh", "Fun")
	err := f.coord.Create(context.Background(), d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	rows := f.sess.Rows()
	require.Len(t, rows, 1, "the draft stays in the working set")
	assert.True(t, rows[0].IsTemp())
	assert.NotEmpty(t, f.sess.RowError(rows[0].ID))
	assert.Empty(t, f.budget.Created(), "validation failures never reach the network")
}

func TestCreateRemoteFailurePreservesDraft(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")
	f.budget.CreateErr = errors.New("503 service unavailable")

	err := f.coord.Create(context.Background(), draft("Coffee", "josh", "Fun"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRemote))

	rows := f.sess.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsTemp())
	assert.True(t, rows[0].IsNew)
	assert.Equal(t, session.RowDraft, f.sess.State(rows[0].ID), "the row stays editable and retryable")
	assert.NotEmpty(t, f.sess.RowError(rows[0].ID))
}

func TestCreateJointRedistribution(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Joint(), "NOVEMBER2025")

	// The server splits the joint-entered rent and assigns it to josh.
	f.projected.CreateFn = func(txn model.Transaction) (model.Transaction, error) {
		txn.ID = "p-55"
		txn.Account = "josh"
		txn.IsNew = false
		return txn, nil
	}

	d := model.Transaction{
		Account:         "joint",
		StatementPeriod: "NOVEMBER2025",
		Name:            "Rent",
		Category:        "Housing",
		Amount:          decimal.NewFromInt(-1200),
		Date:            time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		Source:          model.SourceProjected,
	}
	require.NoError(t, f.coord.Create(context.Background(), d))

	rows := f.sess.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "p-55", rows[0].ID)
	assert.Equal(t, model.SourceProjected, rows[0].Source)

	probes := f.probeStrings()
	assert.Contains(t, probes, "projected/accounts/joint")
	assert.Contains(t, probes, "projected/accounts/josh", "the server-assigned account fans out too")
}

func TestUpdateRoutesBySourceAndMergesPatch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	row := draft("Rent", "josh", "Housing")
	row.ID = "p-10"
	row.Source = model.SourceProjected
	f.sess.AddLocal(row)

	newAmount := decimal.NewFromInt(-1300)
	memo := "raised again"
	require.NoError(t, f.coord.Update(context.Background(), "p-10", Patch{
		Amount: &newAmount,
		Memo:   &memo,
	}))

	sent, ok := f.projected.Updated("p-10")
	require.True(t, ok)
	assert.True(t, sent.Amount.Equal(newAmount))
	assert.Equal(t, "raised again", sent.Memo)
	assert.Equal(t, "Rent", sent.Name, "unpatched fields are kept")

	got, ok := f.sess.Row("p-10")
	require.True(t, ok)
	assert.Equal(t, "raised again", got.Memo)
	assert.Equal(t, model.SourceProjected, got.Source)
}

func TestUpdateFailureTriggersCorrectiveRefetch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")
	f.budget.UpdateErr = errors.New("409 conflict")

	row := draft("Rent", "josh", "Housing")
	row.ID = "b-7"
	f.sess.AddLocal(row)

	err := f.coord.Update(context.Background(), "b-7", Patch{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRemote))
	assert.NotEmpty(t, f.sess.RowError("b-7"))

	// The optimistic local value cannot be trusted after a failed
	// save; the owning scope is invalidated to resync.
	assert.Contains(t, f.probeStrings(), "budget/accounts/josh")
}

func TestUpdateUnknownRow(t *testing.T) {
	f := newFixture(t, defaultConfig())
	err := f.coord.Update(context.Background(), "ghost", Patch{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeleteLocalOnlyRowSkipsNetwork(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	local := draft("Draft row", "josh", "Fun")
	local.ID = model.NewTempID()
	local.IsNew = true
	f.sess.AddLocal(local)

	removed := f.coord.Delete(context.Background(), []string{local.ID})
	assert.Equal(t, 1, removed)
	assert.Empty(t, f.sess.Rows())
	assert.Empty(t, f.budget.Deleted())
	assert.Empty(t, f.projected.Deleted())
}

func TestDeletePartitionsAndToleratesPartialFailure(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")
	f.budget.DeleteErr = map[string]error{"b-2": errors.New("410 gone wrong")}

	rows := []model.Transaction{
		func() model.Transaction { r := draft("A", "josh", "Fun"); r.ID = "b-1"; return r }(),
		func() model.Transaction { r := draft("B", "josh", "Fun"); r.ID = "b-2"; return r }(),
		func() model.Transaction {
			r := draft("C", "josh", "Fun")
			r.ID = "p-3"
			r.Source = model.SourceProjected
			return r
		}(),
	}
	for _, r := range rows {
		f.sess.AddLocal(r)
	}

	removed := f.coord.Delete(context.Background(), []string{"b-1", "b-2", "p-3"})
	assert.Equal(t, 2, removed, "the failing id is skipped, not fatal")

	assert.ElementsMatch(t, []string{"b-1"}, f.budget.Deleted())
	assert.ElementsMatch(t, []string{"p-3"}, f.projected.Deleted())

	_, stillThere := f.sess.Row("b-2")
	assert.True(t, stillThere, "a failed delete leaves the row present")
}

func TestUploadSuccessInvalidatesEverything(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")
	f.importer.Result = &service.ImportResult{StatementPeriod: "NOVEMBER2025", Imported: 12}

	result, err := f.coord.Upload(context.Background(), strings.NewReader("csv,data"), "november.csv", "NOVEMBER2025")
	require.NoError(t, err)
	assert.Equal(t, 12, result.Imported)

	probes := f.probeStrings()
	assert.Contains(t, probes, "budget/list")
	assert.Contains(t, probes, "budget/accounts/joint")
	assert.Contains(t, probes, "budget/accounts/josh")
	assert.Contains(t, probes, "budget/accounts/anna")
}

func TestUploadFailureIsAtomic(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.importer.Err = errors.New("malformed csv")

	result, err := f.coord.Upload(context.Background(), strings.NewReader("x"), "bad.csv", "NOVEMBER2025")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, f.probeStrings(), "no invalidation on a failed import")
}

func TestManualInvalidateEscapeHatch(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.sess.Select(model.Member("josh"), "NOVEMBER2025")

	keys := f.coord.Invalidate("joint")
	assert.Len(t, keys, 9)

	keys = f.coord.Invalidate("")
	assert.Len(t, keys, 3)
}
