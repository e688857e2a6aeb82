package view

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cerita/nobat/internal/client"
	"github.com/cerita/nobat/internal/model"
)

// fakeAPI records calls and serves canned pages. listFn, when set, takes
// over ListTurns entirely.
type fakeAPI struct {
	mu        sync.Mutex
	listCalls []string
	listFn    func(cursor, direction string) (client.DayPage, error)
	created   []client.TurnInput
	createErr error
	updated   map[string]client.TurnInput
	deleted   []string
	notified  []string
	loginErr  error
}

func pageFor(cursor string, turns ...model.Turn) client.DayPage {
	return client.DayPage{
		Date:  model.DayContext{FaDate: cursor},
		Turns: turns,
	}
}

func (f *fakeAPI) ListTurns(ctx context.Context, cursor, direction string) (client.DayPage, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, cursor+"|"+direction)
	fn := f.listFn
	f.mu.Unlock()
	if fn != nil {
		return fn(cursor, direction)
	}
	if cursor == "" {
		cursor = "1402-05-12"
	}
	return pageFor(cursor), nil
}

func (f *fakeAPI) CreateTurn(ctx context.Context, in client.TurnInput) (model.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Turn{}, f.createErr
	}
	f.created = append(f.created, in)
	return model.Turn{ID: fmt.Sprintf("T%d", len(f.created)), RefPhone: in.RefPhone, Slot: in.Slot}, nil
}

func (f *fakeAPI) UpdateTurn(ctx context.Context, id string, in client.TurnInput) (model.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[string]client.TurnInput{}
	}
	f.updated[id] = in
	return model.Turn{ID: id, RefPhone: in.RefPhone, Slot: in.Slot}, nil
}

func (f *fakeAPI) DeleteTurn(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) SendCommentSMS(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, id)
	return nil
}

func (f *fakeAPI) Login(ctx context.Context, userID string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "tok-" + userID, nil
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func newTestController(api *fakeAPI, token string) *Controller {
	store := &MemoryStore{}
	if token != "" {
		_ = store.Save(token)
	}
	return NewController(api, client.NewSession(""), store)
}

func TestMountWithoutTokenShowsLoginPrompt(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "")
	c.Mount(context.Background(), "")

	if !c.LoginPromptShown() {
		t.Fatal("login prompt not shown")
	}
	if api.listCount() != 0 {
		t.Fatalf("listed %d times before login", api.listCount())
	}
}

func TestMountWithTokenLoadsToday(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	if c.LoginPromptShown() {
		t.Fatal("login prompt shown despite stored token")
	}
	if !c.Authenticated() {
		t.Fatal("not authenticated")
	}
	if api.listCount() != 1 {
		t.Fatalf("listed %d times", api.listCount())
	}
	if c.Day() == nil || c.Day().FaDate != "1402-05-12" {
		t.Fatalf("day %+v", c.Day())
	}
}

func TestMountTelDeepLinkPrefillsForm(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "+98912xxxxxxx")

	if !c.FormOpen() {
		t.Fatal("form not opened by deep link")
	}
	if got := c.CurrentDraft().Phone; got != "0912xxxxxxx" {
		t.Fatalf("draft phone %q, not normalized", got)
	}
}

func TestLoginPersistsTokenAndLists(t *testing.T) {
	api := &fakeAPI{}
	store := &MemoryStore{}
	session := client.NewSession("")
	c := NewController(api, session, store)
	c.Mount(context.Background(), "")

	c.Login(context.Background(), "  Reception1  ")

	if c.LoginPromptShown() {
		t.Fatal("login prompt still shown")
	}
	if session.Token() != "tok-reception1" {
		t.Fatalf("session token %q; id not lowercased/trimmed", session.Token())
	}
	if saved, _ := store.Load(); saved != "tok-reception1" {
		t.Fatalf("stored token %q", saved)
	}
	if api.listCount() != 1 {
		t.Fatalf("listed %d times after login", api.listCount())
	}
}

func TestLogoutIsTwoStep(t *testing.T) {
	api := &fakeAPI{}
	store := &MemoryStore{}
	session := client.NewSession("")
	c := NewController(api, session, store)
	_ = store.Save("token1234")
	c.Mount(context.Background(), "")

	if c.Logout() {
		t.Fatal("first Logout call must only arm confirmation")
	}
	if !c.Authenticated() {
		t.Fatal("armed logout already cleared the session")
	}

	c.DisarmLogout()
	if c.Logout() {
		t.Fatal("disarm did not reset the confirmation")
	}

	if !c.Logout() {
		t.Fatal("second call did not log out")
	}
	if c.Authenticated() || session.Token() != "" {
		t.Fatal("session survived logout")
	}
	if saved, _ := store.Load(); saved != "" {
		t.Fatalf("stored token %q after logout", saved)
	}
	if !c.LoginPromptShown() {
		t.Fatal("login prompt not shown after logout")
	}
}

func TestSubmitCreateClosesFormAndRelists(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")
	before := api.listCount()

	c.OpenForm()
	c.SetDraftPhone("912xxxxxxx")
	c.SetDraftTime("10:30")
	c.SetDraftName("رضا")
	c.SubmitCreate(context.Background(), false)

	if len(api.created) != 1 {
		t.Fatalf("created %d turns", len(api.created))
	}
	in := api.created[0]
	if in.RefPhone != "0912xxxxxxx" {
		t.Fatalf("phone %q, not normalized", in.RefPhone)
	}
	if in.Slot != (model.Slot{Date: "1402-05-12", Time: "10:30"}) {
		t.Fatalf("slot %+v", in.Slot)
	}
	if in.User != "1234" {
		t.Fatalf("operator tag %q", in.User)
	}
	if c.FormOpen() {
		t.Fatal("form stayed open")
	}
	if got := c.CurrentDraft(); got != (Draft{Time: TimeSlots()[0]}) {
		t.Fatalf("draft not reset: %+v", got)
	}
	if api.listCount() != before+1 {
		t.Fatalf("re-listed %d times", api.listCount()-before)
	}
}

func TestSubmitCreateKeepOpenKeepsDraft(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	c.OpenForm()
	c.SetDraftPhone("0912xxxxxxx")
	c.SetDraftTime("11:00")
	c.SubmitCreate(context.Background(), true)

	if !c.FormOpen() {
		t.Fatal("form closed despite keepOpen")
	}
	if got := c.CurrentDraft(); got.Phone != "0912xxxxxxx" || got.Time != "11:00" {
		t.Fatalf("draft lost: %+v", got)
	}
}

func TestFailedCreateKeepsFormAndDraft(t *testing.T) {
	api := &fakeAPI{createErr: &client.APIError{Status: 422, Message: "slot already taken"}}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")
	before := api.listCount()

	c.OpenForm()
	c.SetDraftPhone("0912xxxxxxx")
	c.SetDraftTime("10:30")
	c.SubmitCreate(context.Background(), false)

	if !c.FormOpen() {
		t.Fatal("form closed on failure")
	}
	if got := c.CurrentDraft(); got.Phone != "0912xxxxxxx" || got.Time != "10:30" {
		t.Fatalf("draft lost on failure: %+v", got)
	}
	if c.Err() != "slot already taken" {
		t.Fatalf("error banner %q", c.Err())
	}
	if c.Loading() {
		t.Fatal("loading flag stuck")
	}
	if api.listCount() != before {
		t.Fatal("re-listed after a failed create")
	}
}

func TestSelectTurnFillsDraftFromTurn(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	turn := model.Turn{
		ID:          "T1",
		RefName:     "رضا",
		RefPhone:    "0912xxxxxxx",
		Description: "ویزیت",
		Slot:        model.Slot{Date: "1402-05-12", Time: "10:30"},
	}
	c.SelectTurn(turn)

	if !c.FormOpen() {
		t.Fatal("form not opened")
	}
	if sel := c.Selected(); sel == nil || sel.ID != "T1" {
		t.Fatalf("selected %+v", sel)
	}
	d := c.CurrentDraft()
	if d.Phone != turn.RefPhone || d.Time != "10:30" || d.Name != turn.RefName || d.Description != turn.Description {
		t.Fatalf("draft %+v", d)
	}
}

func TestCancelledEditMutatesNothing(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	c.SelectTurn(model.Turn{ID: "T1", RefPhone: "0912xxxxxxx", Slot: model.Slot{Date: "1402-05-12", Time: "10:30"}})
	c.SetDraftName("changed")
	c.CloseForm(false)

	if len(api.updated) != 0 || len(api.deleted) != 0 {
		t.Fatal("cancelling an edit reached the API")
	}
	if c.Selected() != nil {
		t.Fatal("selection survived close")
	}
	// closing an edit resets the draft even without force
	if got := c.CurrentDraft(); got != (Draft{Time: TimeSlots()[0]}) {
		t.Fatalf("draft after cancelled edit: %+v", got)
	}
}

func TestCloseFormPlainKeepsCreateDraft(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	c.OpenForm()
	c.SetDraftPhone("0912xxxxxxx")
	c.CloseForm(false)
	if got := c.CurrentDraft(); got.Phone != "0912xxxxxxx" {
		t.Fatalf("plain close dropped the draft: %+v", got)
	}

	c.CloseForm(true)
	if got := c.CurrentDraft(); got != (Draft{Time: TimeSlots()[0]}) {
		t.Fatalf("forced close kept the draft: %+v", got)
	}
}

func TestSubmitEditRequiresSelection(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")

	c.SubmitEdit(context.Background())
	c.Delete(context.Background())

	if len(api.updated) != 0 || len(api.deleted) != 0 {
		t.Fatal("edit/delete ran without a selection")
	}
}

func TestDeleteRelists(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")
	before := api.listCount()

	c.SelectTurn(model.Turn{ID: "T1", Slot: model.Slot{Date: "1402-05-12", Time: "10:30"}})
	c.Delete(context.Background())

	if len(api.deleted) != 1 || api.deleted[0] != "T1" {
		t.Fatalf("deleted %v", api.deleted)
	}
	if c.FormOpen() {
		t.Fatal("form stayed open after delete")
	}
	if api.listCount() != before+1 {
		t.Fatalf("re-listed %d times", api.listCount()-before)
	}
}

func TestNotifyRelists(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")
	c.Mount(context.Background(), "")
	before := api.listCount()

	c.Notify(context.Background(), model.Turn{ID: "T7"})

	if len(api.notified) != 1 || api.notified[0] != "T7" {
		t.Fatalf("notified %v", api.notified)
	}
	if api.listCount() != before+1 {
		t.Fatalf("re-listed %d times", api.listCount()-before)
	}
}

func TestListErrorKeepsPreviousTurns(t *testing.T) {
	api := &fakeAPI{}
	c := newTestController(api, "token1234")

	shown := model.Turn{ID: "T1", Slot: model.Slot{Date: "1402-05-12", Time: "10:30"}}
	api.listFn = func(cursor, direction string) (client.DayPage, error) {
		return pageFor("1402-05-12", shown), nil
	}
	c.Mount(context.Background(), "")
	if len(c.Turns()) != 1 {
		t.Fatalf("initial turns %v", c.Turns())
	}

	api.mu.Lock()
	api.listFn = func(cursor, direction string) (client.DayPage, error) {
		return client.DayPage{}, &client.APIError{Status: 500, Message: "db error"}
	}
	api.mu.Unlock()
	c.Refresh(context.Background())

	if c.Err() != "db error" {
		t.Fatalf("error banner %q", c.Err())
	}
	if len(c.Turns()) != 1 || c.Turns()[0].ID != "T1" {
		t.Fatalf("previous list lost: %v", c.Turns())
	}
	if c.Loading() {
		t.Fatal("loading flag stuck")
	}
}

func TestOvertakenListResponseIsDiscarded(t *testing.T) {
	api := &fakeAPI{}
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	var calls int
	api.listFn = func(cursor, direction string) (client.DayPage, error) {
		api.mu.Lock()
		calls++
		n := calls
		api.mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return pageFor("1402-05-12"), nil
		}
		return pageFor("1402-05-13"), nil
	}

	c := newTestController(api, "token1234")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Mount(context.Background(), "") // first list, blocks
	}()
	<-firstStarted

	c.NextDay(context.Background()) // second list, completes first
	if c.Day() == nil || c.Day().FaDate != "1402-05-13" {
		t.Fatalf("day after navigation %+v", c.Day())
	}

	close(releaseFirst)
	wg.Wait()

	// the slow first response must not clobber the newer day
	if c.Day().FaDate != "1402-05-13" {
		t.Fatalf("stale response overwrote the day: %+v", c.Day())
	}
	if c.Loading() {
		t.Fatal("loading flag stuck after stale response")
	}
}

func TestTimeSlotsGrid(t *testing.T) {
	slots := TimeSlots()
	if len(slots) != 52 {
		t.Fatalf("%d slots", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "21:45" {
		t.Fatalf("range %s..%s", slots[0], slots[len(slots)-1])
	}
	seen := map[string]bool{}
	for _, s := range slots {
		if seen[s] {
			t.Fatalf("duplicate slot %s", s)
		}
		seen[s] = true
	}
}
